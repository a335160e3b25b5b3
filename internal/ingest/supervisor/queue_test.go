package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrgio/marketpulse/internal/domain"
)

func TestBarQueue_EnqueueDequeueRoundTrip(t *testing.T) {
	q := NewBarQueue(4)
	bar := domain.Bar{Symbol: "BTCUSDT", Interval: domain.Interval1m, Ts: 60}

	require.NoError(t, q.Enqueue(context.Background(), bar))
	assert.Equal(t, 1, q.Len())

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bar, got)
	assert.Equal(t, 0, q.Len())
}

func TestBarQueue_EnqueueBlocksWhenFull(t *testing.T) {
	q := NewBarQueue(1)
	bar := domain.Bar{Symbol: "BTCUSDT", Interval: domain.Interval1m, Ts: 60}
	require.NoError(t, q.Enqueue(context.Background(), bar))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, bar)
	assert.Error(t, err, "a full queue must block and return an error on context cancellation, not drop")
}

func TestBarQueue_DequeueRespectsCancellation(t *testing.T) {
	q := NewBarQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.Error(t, err)
}

func TestBarQueue_ZeroCapacityCoercedToOne(t *testing.T) {
	q := NewBarQueue(0)
	bar := domain.Bar{Symbol: "BTCUSDT", Interval: domain.Interval1m, Ts: 60}
	require.NoError(t, q.Enqueue(context.Background(), bar))
}
