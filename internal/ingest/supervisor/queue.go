package supervisor

import (
	"context"
	"fmt"

	"github.com/nrgio/marketpulse/internal/domain"
)

// BarQueue is a bounded channel of bars between the producers and the aggregator.
// Enqueue blocks when the queue is full rather than dropping (backpressure keeps
// ingestion and aggregation coupled instead of silently losing bars).
type BarQueue struct {
	ch chan domain.Bar
}

// NewBarQueue builds a queue with the given capacity. capacity <= 0 is coerced to 1
// so the queue always has a buffer.
func NewBarQueue(capacity int) *BarQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &BarQueue{ch: make(chan domain.Bar, capacity)}
}

// Enqueue blocks until there is room in the queue or ctx is cancelled.
func (q *BarQueue) Enqueue(ctx context.Context, bar domain.Bar) error {
	select {
	case q.ch <- bar:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("supervisor: enqueue cancelled: %w", ctx.Err())
	}
}

// Dequeue blocks until a bar is available or ctx is cancelled.
func (q *BarQueue) Dequeue(ctx context.Context) (domain.Bar, error) {
	select {
	case bar := <-q.ch:
		return bar, nil
	case <-ctx.Done():
		return domain.Bar{}, ctx.Err()
	}
}

// Len reports the number of bars currently buffered (best-effort, racy by design —
// used only for health/diagnostic reporting).
func (q *BarQueue) Len() int {
	return len(q.ch)
}
