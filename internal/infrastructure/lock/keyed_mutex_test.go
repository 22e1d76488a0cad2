package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	poID := uuid.New()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Acquire(ctx, poID)
			assert.NoError(t, err)
			defer release()
			// Unsynchronized increment; the lock is the only protection.
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := km.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := km.Acquire(ctx, uuid.New())
		assert.NoError(t, err)
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquisition of an unrelated key blocked")
	}
}

func TestKeyedMutex_ContextExpiryYieldsConflict(t *testing.T) {
	km := NewKeyedMutex()
	poID := uuid.New()

	release, err := km.Acquire(context.Background(), poID)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = km.Acquire(ctx, poID)
	require.Error(t, err)
	assert.True(t, shared.HasErrorCode(err, "CONCURRENT_UPDATE_CONFLICT"))
}

func TestKeyedMutex_ReleaseAllowsReacquire(t *testing.T) {
	km := NewKeyedMutex()
	poID := uuid.New()
	ctx := context.Background()

	release, err := km.Acquire(ctx, poID)
	require.NoError(t, err)
	release()

	release2, err := km.Acquire(ctx, poID)
	require.NoError(t, err)
	release2()
}
