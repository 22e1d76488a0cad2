package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestWithContext(t *testing.T) {
	log := zap.NewNop()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}

func TestFromContextReturnsNopWhenAbsent(t *testing.T) {
	log := FromContext(context.Background())
	require.NotNil(t, log)
	// Must be safe to use without panicking.
	log.Info("no-op")
}

func TestWithRequestID(t *testing.T) {
	log, logs := observedLogger()
	ctx, enriched := WithRequestID(context.Background(), log, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("hello")
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
}

func TestWithActor(t *testing.T) {
	log, logs := observedLogger()
	ctx, enriched := WithActor(context.Background(), log, "reviewer@acme.test")

	assert.Equal(t, "reviewer@acme.test", GetActor(ctx))

	enriched.Info("decided")
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "reviewer@acme.test", logs.All()[0].ContextMap()["actor"])
}

func TestGettersReturnEmptyWhenAbsent(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetActor(ctx))
}

func TestWithTraceContextWithoutSpan(t *testing.T) {
	log := zap.NewNop()
	// No active span: logger comes back unchanged.
	assert.Same(t, log, WithTraceContext(context.Background(), log))
}

func TestContextLogger(t *testing.T) {
	t.Run("injects correlation fields", func(t *testing.T) {
		log, logs := observedLogger()
		ctx := WithContext(context.Background(), log)
		ctx = context.WithValue(ctx, RequestIDKey, "req-9")
		ctx = context.WithValue(ctx, ActorKey, "buyer@acme.test")

		L(ctx).Info("recompute finished", zap.String("invoice_id", "inv-1"))

		require.Len(t, logs.All(), 1)
		entry := logs.All()[0].ContextMap()
		assert.Equal(t, "req-9", entry["request_id"])
		assert.Equal(t, "buyer@acme.test", entry["actor"])
		assert.Equal(t, "inv-1", entry["invoice_id"])
	})

	t.Run("With adds persistent fields", func(t *testing.T) {
		log, logs := observedLogger()
		cl := WithLogger(context.Background(), log).With(zap.String("po_id", "po-7"))

		cl.Warn("mismatch detected")

		require.Len(t, logs.All(), 1)
		assert.Equal(t, "po-7", logs.All()[0].ContextMap()["po_id"])
	})

	t.Run("nil logger is safe", func(t *testing.T) {
		cl := &ContextLogger{ctx: context.Background()}
		cl.Info("still fine")
	})
}
