// Package router assembles the HTTP surface of the reconciliation service.
package router

import (
	"github.com/erp/procurement/internal/infrastructure/auth"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/erp/procurement/internal/interfaces/http/handler"
	"github.com/erp/procurement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles the endpoint handlers wired into the router
type Handlers struct {
	PurchaseOrders *handler.PurchaseOrderHandler
	GoodsReceipts  *handler.GoodsReceiptHandler
	VendorInvoices *handler.VendorInvoiceHandler
	Reconciliation *handler.ReconciliationHandler
	Policy         *handler.PolicyHandler
	Health         *handler.HealthHandler
}

// Dependencies carries everything the router needs beyond the handlers
type Dependencies struct {
	Config         *config.Config
	Logger         *zap.Logger
	JWTService     *auth.JWTService
	TracerProvider *telemetry.TracerProvider
	MeterProvider  *telemetry.MeterProvider
}

// New builds the gin engine with the full middleware chain and all routes
// registered. Health endpoints stay outside authentication.
func New(deps Dependencies, handlers Handlers) (*gin.Engine, error) {
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(deps.Config.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(deps.Config.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(deps.Logger))
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: deps.Config.HTTP.CORSAllowOrigins,
		AllowMethods: deps.Config.HTTP.CORSAllowMethods,
		AllowHeaders: deps.Config.HTTP.CORSAllowHeaders,
	}))
	engine.Use(middleware.BodyLimit(deps.Config.HTTP.MaxBodySize))

	if deps.Config.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(
			deps.Config.HTTP.RateLimitRequests,
			deps.Config.HTTP.RateLimitWindow,
		))
	}

	if deps.TracerProvider != nil && deps.TracerProvider.IsEnabled() {
		for _, mw := range middleware.Tracing(middleware.TracingConfig{
			ServiceName:    deps.Config.Telemetry.ServiceName,
			TracerProvider: deps.TracerProvider.Provider(),
			Enabled:        true,
		}) {
			engine.Use(mw)
		}
		engine.Use(middleware.TracingAttributeInjector())
	}
	if deps.MeterProvider != nil {
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: deps.MeterProvider,
			ServiceName:   deps.Config.Telemetry.ServiceName,
			Enabled:       deps.MeterProvider.IsEnabled(),
		}))
	}

	engine.GET("/health", handlers.Health.Health)
	engine.GET("/ready", handlers.Health.Ready)

	api := engine.Group("/api/v1")
	if deps.JWTService != nil {
		api.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: deps.JWTService,
			Logger:     deps.Logger,
		}))
	}

	registerRoutes(api, handlers)

	return engine, nil
}

func registerRoutes(api *gin.RouterGroup, h Handlers) {
	orders := api.Group("/purchase-orders")
	{
		orders.POST("", h.PurchaseOrders.Create)
		orders.GET("", h.PurchaseOrders.List)
		orders.GET("/:id", h.PurchaseOrders.GetByID)
		orders.GET("/:id/goods-receipts", h.GoodsReceipts.ListByPurchaseOrder)
		orders.POST("/:id/recompute", h.Reconciliation.RecomputeOrder)
	}

	receipts := api.Group("/goods-receipts")
	{
		receipts.POST("", h.GoodsReceipts.Post)
		receipts.GET("/:id", h.GoodsReceipts.GetByID)
		receipts.POST("/:id/cancel", h.GoodsReceipts.Cancel)
	}

	invoices := api.Group("/vendor-invoices")
	{
		invoices.POST("", h.VendorInvoices.Create)
		invoices.GET("", h.VendorInvoices.List)
		invoices.GET("/:id", h.VendorInvoices.GetByID)
		invoices.PUT("/:id/lines", h.VendorInvoices.SetLines)
		invoices.POST("/:id/link", h.VendorInvoices.Link)
		invoices.POST("/:id/submit", h.VendorInvoices.Submit)
		invoices.POST("/:id/void", h.VendorInvoices.Void)

		invoices.GET("/:id/match-result", h.Reconciliation.GetResult)
		invoices.POST("/:id/recompute", h.Reconciliation.Recompute)
		invoices.POST("/:id/approve", h.Reconciliation.Approve)
		invoices.POST("/:id/override", h.Reconciliation.Override)
		invoices.POST("/:id/reject", h.Reconciliation.Reject)
		invoices.POST("/:id/post", h.Reconciliation.Post)
	}

	matches := api.Group("/match-results")
	{
		matches.GET("", h.Reconciliation.List)
		matches.GET("/mismatches", h.Reconciliation.ListMismatches)
	}

	rules := api.Group("/policy-rules")
	{
		rules.POST("", h.Policy.CreateRule)
		rules.GET("", h.Policy.ListRules)
		rules.GET("/:id", h.Policy.GetRule)
		rules.PUT("/:id", h.Policy.UpdateRule)
		rules.DELETE("/:id", h.Policy.DeleteRule)
	}
}
