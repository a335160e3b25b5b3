package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	restBaseURL   = "https://api.binance.com/api/v3/klines"
	restRequestTO = 10 * time.Second
)

// RESTPoller periodically fetches the last two 1-minute klines per symbol and emits
// the second-to-last (the most recent fully closed one), deduplicated by (symbol, ts).
type RESTPoller struct {
	symbols      []string
	pollInterval float64 // seconds
	sink         Sink
	log          zerolog.Logger
	httpClient   *http.Client
	baseURL      string

	mu       sync.Mutex
	lastSeen map[string]int64 // symbol -> last emitted ts

	polledOnce  atomic.Bool
	onFirstPoll func()
}

// OnFirstPoll registers a callback invoked after the first successful poll round
// (supervisor's StartingREST -> RunningREST transition hook).
func (p *RESTPoller) OnFirstPoll(fn func()) {
	p.onFirstPoll = fn
}

// NewRESTPoller builds a poller for symbols, polling every pollSeconds.
func NewRESTPoller(symbols []string, pollSeconds float64, sink Sink, log zerolog.Logger) *RESTPoller {
	return &RESTPoller{
		symbols:      symbols,
		pollInterval: pollSeconds,
		sink:         sink,
		log:          log.With().Str("component", "binance_rest").Logger(),
		httpClient:   &http.Client{Timeout: restRequestTO},
		baseURL:      restBaseURL,
		lastSeen:     make(map[string]int64),
	}
}

// Run drives the poll cadence with a robfig/cron schedule rather than a bare
// time.Ticker, until ctx is cancelled.
func (p *RESTPoller) Run(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", time.Duration(p.pollInterval*float64(time.Second)))
	c := cron.New()

	// Poll once immediately so the first bar does not wait a full interval.
	p.pollAll(ctx)

	if _, err := c.AddFunc(spec, func() { p.pollAll(ctx) }); err != nil {
		return fmt.Errorf("binance: rest poller cron schedule %q: %w", spec, err)
	}
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	return nil
}

func (p *RESTPoller) pollAll(ctx context.Context) {
	anySucceeded := false
	for _, symbol := range p.symbols {
		if ctx.Err() != nil {
			return
		}
		if err := p.pollOne(ctx, symbol); err != nil {
			p.log.Debug().Err(err).Str("symbol", symbol).Msg("rest poll failed, will retry next tick")
			continue
		}
		anySucceeded = true
	}
	if anySucceeded && p.polledOnce.CompareAndSwap(false, true) && p.onFirstPoll != nil {
		p.onFirstPoll()
	}
}

func (p *RESTPoller) pollOne(ctx context.Context, symbol string) error {
	reqCtx, cancel := context.WithTimeout(ctx, restRequestTO)
	defer cancel()

	u := fmt.Sprintf("%s?symbol=%s&interval=1m&limit=2", p.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("binance: rest request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("binance: rest transient error, status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("binance: rest request failed, status %d", resp.StatusCode)
	}

	var klines []restKline
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return fmt.Errorf("binance: rest decode: %w", err)
	}
	if len(klines) < 2 {
		return nil // not enough history yet, nothing closed to emit
	}

	// klines[-1] may still be open; klines[-2] is the most recent fully closed bar.
	closed := klines[len(klines)-2]
	bar, err := closed.toBar(symbol)
	if err != nil {
		return fmt.Errorf("binance: rest kline parse: %w", err)
	}

	p.mu.Lock()
	if p.lastSeen[symbol] >= bar.Ts {
		p.mu.Unlock()
		return nil // already emitted (dedup by symbol, ts)
	}
	p.lastSeen[symbol] = bar.Ts
	p.mu.Unlock()

	return p.sink.Enqueue(ctx, bar)
}
