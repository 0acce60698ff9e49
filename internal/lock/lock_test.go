package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acquireWithin(g Guard, key string, d time.Duration) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return g.Acquire(ctx, key)
}

// exerciseGuard runs the behaviour every Guard implementation must share.
func exerciseGuard(t *testing.T, g Guard) {
	t.Run("times out while held", func(t *testing.T) {
		release, err := acquireWithin(g, "DrA", time.Second)
		require.NoError(t, err)

		_, err = acquireWithin(g, "DrA", 50*time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)

		release()
		release() // second call is a no-op

		release, err = acquireWithin(g, "DrA", time.Second)
		require.NoError(t, err)
		release()
	})

	t.Run("keys are independent", func(t *testing.T) {
		releaseA, err := acquireWithin(g, "DrA", time.Second)
		require.NoError(t, err)
		defer releaseA()

		releaseB, err := acquireWithin(g, "DrB", 100*time.Millisecond)
		require.NoError(t, err)
		releaseB()
	})

	t.Run("cancellation is not a timeout", func(t *testing.T) {
		release, err := acquireWithin(g, "DrC", time.Second)
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = g.Acquire(ctx, "DrC")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("mutual exclusion", func(t *testing.T) {
		var inside, maxInside int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := acquireWithin(g, "DrD", 5*time.Second)
				if !assert.NoError(t, err) {
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				release()
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), maxInside)
	})
}

func TestMemoryGuard(t *testing.T) {
	exerciseGuard(t, NewMemoryGuard())
}
