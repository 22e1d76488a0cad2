package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestDBMetrics(t *testing.T, cfg DBMetricsConfig) (*DBMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewDBMetrics(provider.Meter("test"), cfg, zap.NewNop())
	require.NoError(t, err)
	return m, reader
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	t.Run("counts queries by operation", func(t *testing.T) {
		m, reader := newTestDBMetrics(t, DefaultDBMetricsConfig())
		ctx := context.Background()

		m.RecordQuery(ctx, "select", "match_results", 5*time.Millisecond, nil)
		m.RecordQuery(ctx, "INSERT", "goods_receipts", 2*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		sum := findSum(t, rm, "db_query_total")
		assert.Len(t, sum.DataPoints, 2)
	})

	t.Run("empty operation is recorded as UNKNOWN", func(t *testing.T) {
		m, reader := newTestDBMetrics(t, DefaultDBMetricsConfig())
		ctx := context.Background()

		m.RecordQuery(ctx, "", "", time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		sum := findSum(t, rm, "db_query_total")
		require.Len(t, sum.DataPoints, 1)
	})

	t.Run("slow queries hit the slow query counter", func(t *testing.T) {
		cfg := DefaultDBMetricsConfig()
		cfg.SlowQueryThreshold = 10 * time.Millisecond
		m, reader := newTestDBMetrics(t, cfg)
		ctx := context.Background()

		m.RecordQuery(ctx, "SELECT", "vendor_invoices", 50*time.Millisecond, nil)
		m.RecordQuery(ctx, "SELECT", "vendor_invoices", time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		sum := findSum(t, rm, "db_slow_query_total")
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	})
}

func TestDBMetrics_StopIdempotent(t *testing.T) {
	m, _ := newTestDBMetrics(t, DefaultDBMetricsConfig())
	m.Stop()
	m.Stop()
}

func TestDBMetrics_PoolStatsWithoutDB(t *testing.T) {
	m, _ := newTestDBMetrics(t, DefaultDBMetricsConfig())
	// Without a sql.DB the collection loop must refuse to start.
	m.StartPoolStatsCollection(context.Background())
	m.Stop()
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM match_results":        "SELECT",
		"  select 1":                         "SELECT",
		"INSERT INTO line_match_results ...": "INSERT",
		"update purchase_orders set ...":     "UPDATE",
		"DELETE FROM tolerance_policy_rules": "DELETE",
		"TRUNCATE TABLE x":                   "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, detectOperationType(sql), "sql %q", sql)
	}
}
