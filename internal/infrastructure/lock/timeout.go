package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Acquirer is the minimal lock surface the wrappers in this package share.
type Acquirer interface {
	Acquire(ctx context.Context, poID uuid.UUID) (func(), error)
}

type timeoutLocker struct {
	inner   Acquirer
	timeout time.Duration
}

// WithTimeout bounds how long an Acquire call may wait for the order lock.
// A zero timeout returns the inner locker unchanged.
func WithTimeout(inner Acquirer, timeout time.Duration) Acquirer {
	if timeout <= 0 {
		return inner
	}
	return &timeoutLocker{inner: inner, timeout: timeout}
}

func (l *timeoutLocker) Acquire(ctx context.Context, poID uuid.UUID) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	release, err := l.inner.Acquire(waitCtx, poID)
	if err != nil {
		cancel()
		return nil, err
	}
	return func() {
		release()
		cancel()
	}, nil
}
