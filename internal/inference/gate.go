package inference

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of backend calls in flight, matching the
// concurrency the compute device can sustain.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate allows up to n concurrent calls. n < 1 is treated as 1.
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(n))}
}

// Do runs fn once a slot is free, or returns ctx's error if the context ends
// first.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn()
}
