package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName    string
	TracerProvider trace.TracerProvider
	Enabled        bool
}

// Tracing returns a middleware chain that creates a server span per request
// and enriches it with request identity attributes.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled || cfg.TracerProvider == nil {
		return []gin.HandlerFunc{func(c *gin.Context) { c.Next() }}
	}

	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.ServiceName, otelgin.WithTracerProvider(cfg.TracerProvider)),
		enrichSpanWithAttributes(),
		SpanErrorMarker(),
	}
}

// enrichSpanWithAttributes attaches the request id and authenticated actor to
// the active server span so traces can be correlated with logs.
func enrichSpanWithAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID, exists := c.Get("request_id"); exists {
				if rid, ok := requestID.(string); ok && rid != "" {
					span.SetAttributes(attribute.String("http.request_id", rid))
				}
			}
		}
		c.Next()

		// The actor is only known after authentication has run
		if span.IsRecording() {
			if actor := GetJWTActor(c); actor != "" {
				span.SetAttributes(attribute.String("enduser.id", actor))
			}
		}
	}
}

// SpanErrorMarker marks the active span as errored when the handler chain
// produced a 4xx or 5xx status.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors {
				span.RecordError(ginErr.Err)
			}
		}
	}
}

// TracingAttributeInjector copies the trace id into the response headers so
// clients can reference it when reporting issues.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		spanCtx := trace.SpanContextFromContext(c.Request.Context())
		if spanCtx.HasTraceID() {
			c.Header("X-Trace-ID", spanCtx.TraceID().String())
		}
		c.Next()
	}
}
