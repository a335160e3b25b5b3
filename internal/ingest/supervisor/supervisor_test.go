package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrgio/marketpulse/internal/config"
	"github.com/nrgio/marketpulse/internal/events"
	"github.com/nrgio/marketpulse/internal/ingest/binance"
)

type fakeWSProducer struct {
	onConnected func()
	runFn       func(ctx context.Context) error
}

func (f *fakeWSProducer) OnConnected(fn func()) { f.onConnected = fn }
func (f *fakeWSProducer) Run(ctx context.Context) error {
	if f.onConnected != nil {
		f.onConnected()
	}
	return f.runFn(ctx)
}

type fakeRESTProducer struct {
	onFirstPoll func()
	runFn       func(ctx context.Context) error
}

func (f *fakeRESTProducer) OnFirstPoll(fn func()) { f.onFirstPoll = fn }
func (f *fakeRESTProducer) Run(ctx context.Context) error {
	if f.onFirstPoll != nil {
		f.onFirstPoll()
	}
	return f.runFn(ctx)
}

func newTestSupervisor(mode config.Transport) *Supervisor {
	cfg := config.Config{
		BinanceSymbols:         []string{"BTCUSDT"},
		BinanceTransport:       mode,
		BinanceRESTPollSeconds: 2,
	}
	return New(cfg, NewBarQueue(16), events.NewBus(zerolog.Nop()), zerolog.Nop())
}

var errSimulatedExit = errors.New("simulated producer exit")

// TestSupervisor_AutoModeFallsBackAfterWSExit exercises the literal WS-to-REST
// fallback scenario: a WS producer that exits right after connecting causes
// exactly one REST producer to become active, and the latch prevents a second
// WS attempt.
func TestSupervisor_AutoModeFallsBackAfterWSExit(t *testing.T) {
	s := newTestSupervisor(config.TransportAuto)

	restStarted := 0
	s.newWS = func(symbols []string, sink binance.Sink, log zerolog.Logger, failFast bool) wsProducer {
		return &fakeWSProducer{
			runFn: func(ctx context.Context) error {
				return errSimulatedExit // exits immediately after "connecting"
			},
		}
	}
	s.newREST = func(symbols []string, pollSeconds float64, sink binance.Sink, log zerolog.Logger) restProducer {
		restStarted++
		return &fakeRESTProducer{
			runFn: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	require.NoError(t, err)

	status := s.Status()
	assert.Equal(t, "rest", status.ActiveTransport)
	assert.True(t, status.FallbackTriggered)
	assert.Equal(t, 1, restStarted, "exactly one REST producer must start after WS fallback")
}

func TestSupervisor_WSModeHasNoFallbackAndGoesTerminal(t *testing.T) {
	s := newTestSupervisor(config.TransportWS)

	restStarted := 0
	s.newWS = func(symbols []string, sink binance.Sink, log zerolog.Logger, failFast bool) wsProducer {
		return &fakeWSProducer{runFn: func(ctx context.Context) error { return errSimulatedExit }}
	}
	s.newREST = func(symbols []string, pollSeconds float64, sink binance.Sink, log zerolog.Logger) restProducer {
		restStarted++
		return &fakeRESTProducer{runFn: func(ctx context.Context) error { <-ctx.Done(); return nil }}
	}

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, errSimulatedExit)
	assert.Equal(t, 0, restStarted, "ws mode must never start a rest producer")

	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	assert.Equal(t, FailedTerminal, state)
}

func TestSupervisor_RESTModeGoesRunningRESTDirectly(t *testing.T) {
	s := newTestSupervisor(config.TransportREST)

	s.newREST = func(symbols []string, pollSeconds float64, sink binance.Sink, log zerolog.Logger) restProducer {
		return &fakeRESTProducer{runFn: func(ctx context.Context) error { <-ctx.Done(); return nil }}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, "rest", s.Status().ActiveTransport)
}

func TestSupervisor_CleanShutdownDoesNotTriggerFallback(t *testing.T) {
	s := newTestSupervisor(config.TransportAuto)

	s.newWS = func(symbols []string, sink binance.Sink, log zerolog.Logger, failFast bool) wsProducer {
		return &fakeWSProducer{runFn: func(ctx context.Context) error {
			<-ctx.Done()
			return nil // clean cancellation, not an exit
		}}
	}
	restStarted := 0
	s.newREST = func(symbols []string, pollSeconds float64, sink binance.Sink, log zerolog.Logger) restProducer {
		restStarted++
		return &fakeRESTProducer{runFn: func(ctx context.Context) error { <-ctx.Done(); return nil }}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 0, restStarted, "a clean cancellation must never trigger fallback")
	assert.False(t, s.Status().FallbackTriggered)
}
