// Package lock provides per-key mutual exclusion with a bounded wait.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when a lock could not be acquired before the context deadline.
var ErrTimeout = errors.New("lock wait timed out")

// Guard serializes critical sections per key. Acquire blocks until the lock
// is held or ctx is done; release must be called once the section ends.
// Calling release more than once is harmless.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard is an in-process Guard with one binary semaphore per key.
type MemoryGuard struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewMemoryGuard creates an empty MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{sems: make(map[string]*semaphore.Weighted)}
}

func (g *MemoryGuard) semaphore(key string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()

	sem, ok := g.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.sems[key] = sem
	}
	return sem
}

// Acquire implements Guard.
func (g *MemoryGuard) Acquire(ctx context.Context, key string) (func(), error) {
	sem := g.semaphore(key)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, waitError(key, err)
	}

	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

func waitError(key string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lock %q: %w", key, ErrTimeout)
	}
	return fmt.Errorf("lock %q: %w", key, err)
}
