package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/procurement/internal/infrastructure/auth"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()

	jwtCfg := config.JWTConfig{
		Secret:                "router-test-secret-key-0123456789ab",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "procurement-recon",
	}
	cfg := &config.Config{JWT: jwtCfg}
	cfg.App.Env = "test"
	cfg.HTTP.MaxBodySize = 1 << 20
	cfg.HTTP.CORSAllowMethods = []string{"GET", "POST"}
	cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization"}

	jwtService := auth.NewJWTService(jwtCfg)

	// Handlers with nil services are fine here: requests either hit the
	// health endpoints or are rejected by the auth middleware first.
	engine, err := New(Dependencies{
		Config:     cfg,
		Logger:     zap.NewNop(),
		JWTService: jwtService,
	}, Handlers{
		PurchaseOrders: handler.NewPurchaseOrderHandler(nil),
		GoodsReceipts:  handler.NewGoodsReceiptHandler(nil),
		VendorInvoices: handler.NewVendorInvoiceHandler(nil),
		Reconciliation: handler.NewReconciliationHandler(nil),
		Policy:         handler.NewPolicyHandler(nil),
		Health:         handler.NewHealthHandler(nil),
	})
	require.NoError(t, err)
	return engine, jwtService
}

func TestRouterHealthBypassesAuth(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterProtectedRouteRequiresToken(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/policy-rules", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterRequestIDHeader(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
