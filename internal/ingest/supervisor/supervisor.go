// Package supervisor drives exactly one active 1-minute bar producer per
// configured symbol set (a Binance WS client or REST poller), forwarding every
// finalised bar to a bounded queue and performing one-shot WS-to-REST failover
// in auto mode.
package supervisor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nrgio/marketpulse/internal/config"
	"github.com/nrgio/marketpulse/internal/events"
	"github.com/nrgio/marketpulse/internal/ingest/binance"
)

// Status is a point-in-time snapshot for the /v1/providers endpoint.
type Status struct {
	Mode              config.Transport
	ActiveTransport   string
	Symbols           []string
	PollIntervalSecs  float64
	FallbackTriggered bool
}

// wsProducer is the subset of *binance.WSClient the state machine drives.
type wsProducer interface {
	Run(ctx context.Context) error
	OnConnected(fn func())
}

// restProducer is the subset of *binance.RESTPoller the state machine drives.
type restProducer interface {
	Run(ctx context.Context) error
	OnFirstPoll(fn func())
}

// Supervisor owns the producer lifecycle and the state machine described by
// the streaming supervisor's transition table.
type Supervisor struct {
	symbols     []string
	mode        config.Transport
	pollSeconds float64
	queue       *BarQueue
	bus         *events.Bus
	log         zerolog.Logger

	// newWS/newREST build the producers; overridable in tests to avoid real
	// network dependencies while exercising the same state transitions.
	newWS   func(symbols []string, sink binance.Sink, log zerolog.Logger, failFast bool) wsProducer
	newREST func(symbols []string, pollSeconds float64, sink binance.Sink, log zerolog.Logger) restProducer

	mu                sync.RWMutex
	state             State
	activeTransport   string
	fallbackTriggered bool
}

// New builds a Supervisor from configuration. queue is shared with the
// aggregator, which drains it on its own goroutine.
func New(cfg config.Config, queue *BarQueue, bus *events.Bus, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		symbols:     cfg.BinanceSymbols,
		mode:        cfg.BinanceTransport,
		pollSeconds: cfg.BinanceRESTPollSeconds,
		queue:       queue,
		bus:         bus,
		log:         log.With().Str("component", "supervisor").Logger(),
		state:       Stopped,
		newWS: func(symbols []string, sink binance.Sink, log zerolog.Logger, failFast bool) wsProducer {
			return binance.NewWSClient(symbols, sink, log, failFast)
		},
		newREST: func(symbols []string, pollSeconds float64, sink binance.Sink, log zerolog.Logger) restProducer {
			return binance.NewRESTPoller(symbols, pollSeconds, sink, log)
		},
	}
}

// Status returns a snapshot safe for concurrent reads.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Mode:              s.mode,
		ActiveTransport:   s.activeTransport,
		Symbols:           append([]string(nil), s.symbols...),
		PollIntervalSecs:  s.pollSeconds,
		FallbackTriggered: s.fallbackTriggered,
	}
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) setActiveTransport(transport string) {
	s.mu.Lock()
	s.activeTransport = transport
	s.mu.Unlock()
	s.bus.Emit(events.TransportChanged, "", map[string]interface{}{"active_transport": transport})
}

// Run blocks until ctx is cancelled (clean shutdown) or, in ws mode only, the WS
// producer exhausts its fail-fast retry budget (FailedTerminal).
func (s *Supervisor) Run(ctx context.Context) error {
	switch s.mode {
	case config.TransportREST:
		return s.runREST(ctx)
	case config.TransportWS, config.TransportAuto:
		return s.runWS(ctx)
	default:
		return errors.New("supervisor: unknown transport mode")
	}
}

func (s *Supervisor) runWS(ctx context.Context) error {
	s.setState(StartingWS)

	client := s.newWS(s.symbols, s.queue, s.log, true)
	client.OnConnected(func() {
		s.setState(RunningWS)
		s.setActiveTransport("ws")
	})

	err := client.Run(ctx)

	if ctx.Err() != nil {
		s.setState(Stopped)
		return nil
	}

	// The WS producer exited on its own (fail-fast exhaustion, or any other
	// terminal condition) while ctx is still live.
	if s.mode == config.TransportWS {
		s.log.Error().Err(err).Msg("websocket producer exited, no fallback configured for ws mode")
		s.setState(FailedTerminal)
		return err
	}

	s.mu.Lock()
	alreadyTriggered := s.fallbackTriggered
	s.fallbackTriggered = true
	s.mu.Unlock()

	if alreadyTriggered {
		// Should not happen: only one WS producer runs per supervisor lifetime.
		s.setState(Stopped)
		return nil
	}

	s.log.Warn().Err(err).Msg("websocket producer exited, falling back to rest (one-shot)")
	s.bus.Emit(events.FallbackTriggered, "", map[string]interface{}{"from": "ws", "to": "rest"})
	return s.runREST(ctx)
}

func (s *Supervisor) runREST(ctx context.Context) error {
	s.setState(StartingREST)

	poller := s.newREST(s.symbols, s.pollSeconds, s.queue, s.log)
	poller.OnFirstPoll(func() {
		s.setState(RunningREST)
		s.setActiveTransport("rest")
	})

	_ = poller.Run(ctx) // REST poller only returns on ctx cancellation
	s.setState(Stopped)
	return nil
}
