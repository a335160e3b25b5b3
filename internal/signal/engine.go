package signal

import (
	"context"
	"fmt"

	"github.com/nrgio/marketpulse/internal/domain"
)

// BarReader is the subset of the bar store the engine needs: a point-in-time range
// query per (symbol, interval).
type BarReader interface {
	RangeQuery(ctx context.Context, symbol string, interval domain.Interval, limit int) ([]domain.Bar, error)
}

// SignalResponse is the full output of one /v1/signal evaluation.
type SignalResponse struct {
	Symbol    string          `json:"symbol"`
	Consensus ConsensusSignal `json:"consensus"`
	TradePlan TradePlan       `json:"trade_plan"`
	Tags      []string        `json:"tags"`
}

// Engine evaluates the signal pipeline (features -> confidence -> per-horizon
// signal -> consensus -> state -> trade plan) from a bar reader snapshot. It holds
// no session state: every call is computed fresh from the store.
type Engine struct {
	reader BarReader
}

// NewEngine builds an Engine reading bars from reader.
func NewEngine(reader BarReader) *Engine {
	return &Engine{reader: reader}
}

// Evaluate runs the full pipeline for symbol over horizons, pulling up to barLimit
// bars per horizon, and returns the composed response. now is the Unix-seconds
// wall-clock time used only for valid_until_ts.
func (e *Engine) Evaluate(ctx context.Context, symbol string, horizons []domain.Interval, barLimit int, now int64) (SignalResponse, error) {
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}

	signals := make([]HorizonSignal, 0, len(horizons))
	barsByHorizon := make(map[domain.Interval][]domain.Bar, len(horizons))
	anyData := false

	for _, h := range horizons {
		bars, err := e.reader.RangeQuery(ctx, symbol, h, barLimit)
		if err != nil {
			return SignalResponse{}, fmt.Errorf("signal: range query %s/%s: %w", symbol, h, err)
		}
		barsByHorizon[h] = bars
		if len(bars) > 0 {
			anyData = true
		}
		signals = append(signals, BuildHorizonSignal(h, bars))
	}

	if !anyData {
		return e.noDataResponse(symbol, horizons, now), nil
	}

	consensus := BuildConsensus(signals)
	state, stateTags := MapState(consensus.Direction, consensus.Confidence)

	primary := primaryHorizon(horizons, barsByHorizon)
	plan := BuildTradePlan(state, consensus.Confidence, consensus.AgreementScore, primary, barsByHorizon[primary], horizons, now)

	tags := make([]string, 0, len(consensus.Rationale)+len(stateTags))
	tags = append(tags, consensus.Rationale...)
	tags = append(tags, stateTags...)

	return SignalResponse{
		Symbol:    symbol,
		Consensus: consensus,
		TradePlan: plan,
		Tags:      tags,
	}, nil
}

func (e *Engine) noDataResponse(symbol string, horizons []domain.Interval, now int64) SignalResponse {
	state, _ := MapState(0, 0)
	plan := TradePlan{
		State:             state,
		Confidence:        0,
		InvalidationPrice: 0,
		ValidUntilTs:      now + ValidityWindow[longest(horizons)],
		SizeSuggestionPct: sizeSuggestion(0),
		Rationale:         []string{"no_data"},
		HorizonsAnalyzed:  horizons,
	}
	return SignalResponse{
		Symbol:    symbol,
		Consensus: ConsensusSignal{Horizons: nil, Rationale: []string{"no_data"}},
		TradePlan: plan,
		Tags:      []string{"no_data"},
	}
}

// primaryHorizon picks the longest horizon among those analysed with enough bars
// to meet MinBarsForConfidence; if none qualifies, it falls back to the longest
// requested horizon regardless of sufficiency so a (degraded) plan can still be
// produced instead of erroring.
func primaryHorizon(horizons []domain.Interval, barsByHorizon map[domain.Interval][]domain.Bar) domain.Interval {
	var best domain.Interval
	bestRank := -1
	for _, h := range horizons {
		if len(barsByHorizon[h]) < MinBarsForConfidence {
			continue
		}
		if rank := intervalRank(h); rank > bestRank {
			bestRank = rank
			best = h
		}
	}
	if bestRank >= 0 {
		return best
	}
	return longest(horizons)
}

func longest(horizons []domain.Interval) domain.Interval {
	best := horizons[0]
	bestRank := intervalRank(best)
	for _, h := range horizons[1:] {
		if rank := intervalRank(h); rank > bestRank {
			bestRank = rank
			best = h
		}
	}
	return best
}

func intervalRank(i domain.Interval) int {
	for idx, candidate := range domain.AllIntervals {
		if candidate == i {
			return idx
		}
	}
	return -1
}
