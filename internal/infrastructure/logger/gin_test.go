package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(log), GinMiddleware(log))
	return r
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs successful requests at info", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		r := newTestRouter(zap.New(core))
		r.GET("/invoices", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices?status=MISMATCH", nil))

		require.Len(t, logs.All(), 1)
		entry := logs.All()[0]
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/invoices", fields["path"])
		assert.Equal(t, "status=MISMATCH", fields["query"])
	})

	t.Run("logs client errors at warn", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		r := newTestRouter(zap.New(core))
		r.GET("/missing", func(c *gin.Context) {
			c.Status(http.StatusNotFound)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

		require.Len(t, logs.All(), 1)
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("logs server errors at error", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		r := newTestRouter(zap.New(core))
		r.GET("/boom", func(c *gin.Context) {
			c.Status(http.StatusInternalServerError)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		require.Len(t, logs.All(), 1)
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})

	t.Run("stores request-scoped logger in gin context", func(t *testing.T) {
		r := newTestRouter(zap.NewNop())
		var got *zap.Logger
		r.GET("/probe", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

		require.NotNil(t, got)
	})
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := newTestRouter(zap.New(core))
	r.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	found := false
	for _, entry := range logs.All() {
		if entry.Message == "panic recovered" {
			found = true
		}
	}
	assert.True(t, found, "expected a panic recovery log entry")
}

func TestGetGinLoggerWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	log := GetGinLogger(c)
	require.NotNil(t, log)
}
