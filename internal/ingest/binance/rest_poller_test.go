package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrgio/marketpulse/internal/domain"
)

type fakeSink struct {
	mu   sync.Mutex
	bars []domain.Bar
}

func (f *fakeSink) Enqueue(_ context.Context, bar domain.Bar) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars = append(f.bars, bar)
	return nil
}

func (f *fakeSink) snapshot() []domain.Bar {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Bar, len(f.bars))
	copy(out, f.bars)
	return out
}

func klineRow(openTimeMs int64, open, high, low, close, volume float64) []interface{} {
	return []interface{}{
		float64(openTimeMs), open, high, low, close, volume, float64(openTimeMs + 59999),
	}
}

func newTestPoller(t *testing.T, handler http.HandlerFunc) (*RESTPoller, *fakeSink) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sink := &fakeSink{}
	p := NewRESTPoller([]string{"BTCUSDT"}, 0.05, sink, zerolog.Nop())
	p.httpClient = srv.Client()
	p.baseURL = srv.URL
	return p, sink
}

func TestRESTPoller_EmitsSecondToLastClosedKline(t *testing.T) {
	p, sink := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		rows := []interface{}{
			klineRow(60_000, 1, 2, 0.5, 1.5, 10),
			klineRow(120_000, 1.5, 2.5, 1.0, 2.0, 20), // still open, must not be emitted
		}
		_ = json.NewEncoder(w).Encode(rows)
	})

	require.NoError(t, p.pollOne(context.Background(), "BTCUSDT"))

	bars := sink.snapshot()
	require.Len(t, bars, 1)
	assert.Equal(t, "BTCUSDT", bars[0].Symbol)
	assert.Equal(t, int64(60), bars[0].Ts)
	assert.InDelta(t, 1.5, bars[0].Close, 1e-9)
}

func TestRESTPoller_DedupAcrossPolls(t *testing.T) {
	p, sink := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		rows := []interface{}{
			klineRow(60_000, 1, 2, 0.5, 1.5, 10),
			klineRow(120_000, 1.5, 2.5, 1.0, 2.0, 20),
		}
		_ = json.NewEncoder(w).Encode(rows)
	})

	require.NoError(t, p.pollOne(context.Background(), "BTCUSDT"))
	require.NoError(t, p.pollOne(context.Background(), "BTCUSDT"))

	assert.Len(t, sink.snapshot(), 1, "the same closed bar must not be emitted twice")
}

func TestRESTPoller_TooFewKlinesEmitsNothing(t *testing.T) {
	p, sink := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		rows := []interface{}{klineRow(60_000, 1, 2, 0.5, 1.5, 10)}
		_ = json.NewEncoder(w).Encode(rows)
	})

	require.NoError(t, p.pollOne(context.Background(), "BTCUSDT"))
	assert.Empty(t, sink.snapshot())
}

func TestRESTPoller_ServerErrorIsReturned(t *testing.T) {
	p, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := p.pollOne(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestRESTKline_ShortRowRejected(t *testing.T) {
	short := restKline{float64(60_000), "1"}
	_, err := short.toBar("BTCUSDT")
	assert.ErrorIs(t, err, errShortKline)
}

func TestBackoffDelay_NeverExceedsCap(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffDelay(attempt)
		assert.LessOrEqual(t, d, wsMaxBackoff)
		assert.Greater(t, d, time.Duration(0))
	}
}
