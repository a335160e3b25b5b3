// Package aggregator converts a stream of finalised 1-minute bars into
// higher-interval bars with deterministic bucket alignment, persisting both the
// 1-minute bar and every refined higher-timeframe bucket on each update.
package aggregator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrgio/marketpulse/internal/domain"
	"github.com/nrgio/marketpulse/internal/events"
)

// BarWriter is the subset of the bar store the aggregator needs.
type BarWriter interface {
	Upsert(ctx context.Context, bar domain.Bar) error
}

// Dequeuer is the subset of the supervisor's backpressure queue the aggregator
// drains bars from.
type Dequeuer interface {
	Dequeue(ctx context.Context) (domain.Bar, error)
}

const logThrottleInterval = time.Minute

// Aggregator is the single logical consumer between the streaming supervisor and
// the bar store.
type Aggregator struct {
	store     BarWriter
	bus       *events.Bus
	log       zerolog.Logger
	intervals []domain.Interval // target intervals above 1m
	buffers   *bufferSet
	throttle  *symbolThrottle
}

// New builds an Aggregator. intervals should be the full configured set
// (including "1m"); 1m is filtered out since it is persisted directly, not
// aggregated from itself.
func New(store BarWriter, bus *events.Bus, log zerolog.Logger, intervals []string, bufferCapacity int) (*Aggregator, error) {
	targets := make([]domain.Interval, 0, len(intervals))
	for _, raw := range intervals {
		iv, err := domain.ParseInterval(raw)
		if err != nil {
			return nil, err
		}
		if iv == domain.Interval1m {
			continue
		}
		targets = append(targets, iv)
	}

	return &Aggregator{
		store:     store,
		bus:       bus,
		log:       log.With().Str("component", "aggregator").Logger(),
		intervals: targets,
		buffers:   newBufferSet(bufferCapacity),
		throttle:  newSymbolThrottle(logThrottleInterval),
	}, nil
}

// Run drains q until ctx is cancelled, processing each bar in turn.
func (a *Aggregator) Run(ctx context.Context, q Dequeuer) error {
	for {
		bar, err := q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := a.Process(ctx, bar); err != nil {
			a.log.Warn().Err(err).Str("symbol", bar.Symbol).Msg("failed to process bar")
		}
	}
}

// Process applies the bar-aggregator update rule to one finalised 1-minute bar.
func (a *Aggregator) Process(ctx context.Context, bar domain.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	a.buffers.append(bar.Symbol, bar)

	if err := a.store.Upsert(ctx, bar); err != nil {
		return err
	}

	for _, interval := range a.intervals {
		width := interval.Seconds()
		start := domain.BucketStart(bar.Ts, interval)
		bucketBars := a.buffers.inRange(bar.Symbol, start, start+width)
		if len(bucketBars) == 0 {
			continue
		}
		bucket := aggregateBucket(bar.Symbol, interval, start, bucketBars)
		if err := a.store.Upsert(ctx, bucket); err != nil {
			return err
		}
	}

	if a.throttle.Allow(bar.Symbol, time.Now()) {
		a.log.Info().Str("symbol", bar.Symbol).Int64("ts", bar.Ts).Msg("bar ingested")
	}

	a.bus.Emit(events.BarIngested, bar.Symbol, map[string]interface{}{"interval": "1m"})
	return nil
}

// LoadSnapshot seeds the rolling buffers from a previously persisted snapshot (a
// non-authoritative warm-start cache). The snapshot is not reconciled with the
// store: buckets that later live bars recompute from these buffers are upserted
// over whatever the store holds for them.
func (a *Aggregator) LoadSnapshot(data map[string][]domain.Bar) {
	a.buffers.loadAll(data)
}

// Snapshot returns the current buffer contents for persistence.
func (a *Aggregator) Snapshot() map[string][]domain.Bar {
	return a.buffers.snapshotAll()
}
