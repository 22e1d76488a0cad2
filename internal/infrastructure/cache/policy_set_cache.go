package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"go.uber.org/zap"
)

// defaultPolicySetTTL bounds staleness when an invalidation is missed,
// for example after a rule edit through a second instance without Redis.
const defaultPolicySetTTL = 30 * time.Second

// PolicySetLoader loads the current rule set from the source of truth
type PolicySetLoader func(ctx context.Context) (*procurement.PolicySet, error)

// PolicySetCache memoizes the validated tolerance rule set. Every recompute
// needs the full set, so one cached snapshot with explicit invalidation on
// rule changes spares a table scan per match.
type PolicySetCache struct {
	mu        sync.RWMutex
	set       *procurement.PolicySet
	expiresAt time.Time
	ttl       time.Duration
	logger    *zap.Logger

	// Stats for monitoring
	hits   int64
	misses int64
}

// PolicySetCacheOption is a functional option for configuring the cache
type PolicySetCacheOption func(*PolicySetCache)

// WithPolicySetTTL sets the staleness bound for cached snapshots
func WithPolicySetTTL(ttl time.Duration) PolicySetCacheOption {
	return func(c *PolicySetCache) {
		c.ttl = ttl
	}
}

// WithPolicySetLogger sets the logger for the cache
func WithPolicySetLogger(logger *zap.Logger) PolicySetCacheOption {
	return func(c *PolicySetCache) {
		c.logger = logger
	}
}

// NewPolicySetCache creates a new policy set cache
func NewPolicySetCache(opts ...PolicySetCacheOption) *PolicySetCache {
	cache := &PolicySetCache{
		ttl:    defaultPolicySetTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Get returns the cached rule set, loading through the loader on a miss or
// after expiry. A failed load leaves the cache empty rather than pinning a
// stale snapshot past its TTL.
func (c *PolicySetCache) Get(ctx context.Context, loader PolicySetLoader) (*procurement.PolicySet, error) {
	c.mu.RLock()
	if c.set != nil && time.Now().Before(c.expiresAt) {
		set := c.set
		c.mu.RUnlock()
		atomic.AddInt64(&c.hits, 1)
		return set, nil
	}
	c.mu.RUnlock()

	atomic.AddInt64(&c.misses, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock
	if c.set != nil && time.Now().Before(c.expiresAt) {
		return c.set, nil
	}

	set, err := loader(ctx)
	if err != nil {
		c.set = nil
		return nil, err
	}

	c.set = set
	c.expiresAt = time.Now().Add(c.ttl)
	c.logger.Debug("policy set cache refreshed")
	return set, nil
}

// Invalidate drops the cached snapshot. Called when a tolerance rule changes.
func (c *PolicySetCache) Invalidate() {
	c.mu.Lock()
	c.set = nil
	c.mu.Unlock()
	c.logger.Debug("policy set cache invalidated")
}

// Stats returns hit and miss counters
func (c *PolicySetCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
