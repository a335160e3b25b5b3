package barstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nrgio/marketpulse/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func bar(symbol string, interval domain.Interval, ts int64, o, h, l, c, v float64) domain.Bar {
	return domain.Bar{Symbol: symbol, Interval: interval, Ts: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestUpsert_InsertThenOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	b := bar("BTCUSDT", domain.Interval1m, 60, 100, 101, 99, 100.5, 10)
	require.NoError(t, s.Upsert(ctx, b))

	b.Close = 105
	b.High = 106
	b.Volume = 20
	require.NoError(t, s.Upsert(ctx, b))

	got, err := s.RangeQuery(ctx, "BTCUSDT", domain.Interval1m, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 105.0, got[0].Close)
	assert.Equal(t, 106.0, got[0].High)
	assert.Equal(t, 20.0, got[0].Volume)
}

func TestUpsert_RejectsInvalidBar(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	invalid := bar("BTCUSDT", domain.Interval1m, 61, 100, 101, 99, 100.5, 10) // ts not aligned
	err := s.Upsert(ctx, invalid)
	assert.Error(t, err)
}

func TestRangeQuery_OrderedOldestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, s.Upsert(ctx, bar("ETHUSDT", domain.Interval1m, i*60, 1, 1.1, 0.9, 1, 1)))
	}

	got, err := s.RangeQuery(ctx, "ETHUSDT", domain.Interval1m, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{120, 180, 240}, []int64{got[0].Ts, got[1].Ts, got[2].Ts})
}

func TestCounts_FiltersByMinBars1m(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := int64(0); i < 12; i++ {
		require.NoError(t, s.Upsert(ctx, bar("BTCUSDT", domain.Interval1m, i*60, 1, 1.1, 0.9, 1, 1)))
	}
	for i := int64(0); i < 3; i++ {
		require.NoError(t, s.Upsert(ctx, bar("DOGEUSDT", domain.Interval1m, i*60, 1, 1.1, 0.9, 1, 1)))
	}

	counts, err := s.Counts(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, counts, "BTCUSDT")
	assert.NotContains(t, counts, "DOGEUSDT")
	assert.Equal(t, 12, counts["BTCUSDT"]["1m"])
}

func TestUpsertMany_Atomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bars := []domain.Bar{
		bar("BTCUSDT", domain.Interval5m, 0, 1, 1.1, 0.9, 1, 1),
		bar("BTCUSDT", domain.Interval5m, 300, 2, 2.1, 1.9, 2, 1),
	}
	require.NoError(t, s.UpsertMany(ctx, bars))

	got, err := s.RangeQuery(ctx, "BTCUSDT", domain.Interval5m, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
