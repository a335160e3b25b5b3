package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	wsBaseURL       = "wss://stream.binance.com:9443/stream"
	wsOpenTimeout   = 10 * time.Second
	wsPingInterval  = 20 * time.Second
	wsMaxBackoff    = 60 * time.Second
	wsFailFastTries = 3
)

// ErrUnavailable is returned by Run when the WS client has failed to establish a
// handshake wsFailFastTries times in a row in fail-fast mode.
var ErrUnavailable = errors.New("binance: websocket provider unavailable")

// WSClient subscribes to the 1-minute kline stream for a set of symbols over a
// single multiplexed connection.
type WSClient struct {
	symbols  []string
	sink     Sink
	log      zerolog.Logger
	failFast bool

	// connect and sleep are overridable in tests to avoid dialing the real Binance
	// host and waiting out real backoff delays.
	connect func(ctx context.Context) error
	sleep   func(ctx context.Context, d time.Duration)

	// onConnected, if set, fires once per successful dial (supervisor's
	// StartingWS -> RunningWS transition hook).
	onConnected func()

	// handshakes counts successful dials, so Run can tell a failed handshake from
	// a stream that dropped after connecting.
	handshakes int
}

// OnConnected registers a callback invoked after each successful WS handshake.
func (c *WSClient) OnConnected(fn func()) {
	c.onConnected = fn
}

// NewWSClient builds a WS client for symbols (already uppercase). failFast enables
// the "unavailable" condition after wsFailFastTries consecutive failed handshakes,
// used by the supervisor in ws/auto mode.
func NewWSClient(symbols []string, sink Sink, log zerolog.Logger, failFast bool) *WSClient {
	c := &WSClient{
		symbols:  symbols,
		sink:     sink,
		log:      log.With().Str("component", "binance_ws").Logger(),
		failFast: failFast,
	}
	c.connect = c.connectAndStream
	c.sleep = sleepUnlessDone
	return c
}

func sleepUnlessDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Run connects and streams bars until ctx is cancelled or the client gives up after
// wsFailFastTries consecutive failed handshakes (fail-fast mode only). A clean
// cancellation returns nil, never ErrUnavailable.
func (c *WSClient) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		before := c.handshakes
		err := c.connect(ctx)
		if err == nil {
			return nil // ctx cancellation inside connectAndStream
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}

		if c.handshakes != before {
			attempt = 0 // the handshake succeeded; only consecutive failed handshakes count
		} else {
			attempt++
		}
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("websocket connection failed")

		if c.failFast && attempt >= wsFailFastTries {
			return ErrUnavailable
		}

		c.sleep(ctx, backoffDelay(attempt))
		if ctx.Err() != nil {
			return nil
		}
	}
}

// backoffDelay implements exponential backoff with jitter: delay = min(2^attempt + U(0,1), 60s).
func backoffDelay(attempt int) time.Duration {
	base := float64(uint64(1) << uint(minInt(attempt, 30)))
	jitter := rand.Float64()
	seconds := base + jitter
	if seconds > wsMaxBackoff.Seconds() {
		seconds = wsMaxBackoff.Seconds()
	}
	return time.Duration(seconds * float64(time.Second))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (c *WSClient) streamURL() string {
	streams := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		streams[i] = strings.ToLower(s) + "@kline_1m"
	}
	return fmt.Sprintf("%s?streams=%s", wsBaseURL, strings.Join(streams, "/"))
}

func (c *WSClient) connectAndStream(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, wsOpenTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.streamURL(), &websocket.DialOptions{HTTPClient: &http.Client{Timeout: wsOpenTimeout}})
	if err != nil {
		return fmt.Errorf("binance: websocket dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")
	c.handshakes++

	c.log.Info().Strs("symbols", c.symbols).Msg("websocket connected")
	if c.onConnected != nil {
		c.onConnected()
	}

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()
	go c.heartbeat(heartbeatCtx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("binance: websocket read: %w", err)
		}
		c.handleMessage(ctx, data)
	}
}

func (c *WSClient) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsPingInterval)
			if err := conn.Ping(pingCtx); err != nil {
				c.log.Debug().Err(err).Msg("websocket ping failed")
			}
			cancel()
		}
	}
}

func (c *WSClient) handleMessage(ctx context.Context, data []byte) {
	var envelope wsStreamEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed websocket message")
		return
	}
	if !envelope.Data.Kline.IsFinal {
		return // only finalised klines become bars
	}

	bar, err := envelope.Data.Kline.toBar()
	if err != nil {
		c.log.Debug().Err(err).Str("symbol", envelope.Data.Symbol).Msg("dropping unparsable kline")
		return
	}

	if err := c.sink.Enqueue(ctx, bar); err != nil {
		c.log.Debug().Err(err).Str("symbol", bar.Symbol).Msg("failed to enqueue bar")
	}
}
