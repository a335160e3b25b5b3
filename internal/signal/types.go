// Package signal computes multi-horizon directional signals and trade plans from
// bars already persisted by the aggregator. Every function here is pure and
// synchronous: given the same ordered bar slices it returns byte-identical output
// (aside from valid_until_ts, which is a function of the wall clock).
package signal

import "github.com/nrgio/marketpulse/internal/domain"

// SignalState is the final piecewise-mapped directional verdict.
type SignalState string

const (
	StateStrongBuy  SignalState = "STRONG_BUY"
	StateBuy        SignalState = "BUY"
	StateNeutral    SignalState = "NEUTRAL"
	StateSell       SignalState = "SELL"
	StateStrongSell SignalState = "STRONG_SELL"
)

// FeatureSet holds the per-horizon, per-request feature extraction output.
type FeatureSet struct {
	NBars         int     `json:"n_bars"`
	Momentum      float64 `json:"momentum"`       // [-1, 1]
	Volatility    float64 `json:"volatility"`      // >= 0
	TrendDir      int     `json:"trend_direction"` // -1, 0, +1
	Stability     float64 `json:"stability"`       // [0, 1]
	AvgRange      float64 `json:"avg_range"`       // >= 0
}

// HorizonSignal is the per-horizon directional signal composed from features and
// confidence.
type HorizonSignal struct {
	Horizon        domain.Interval `json:"horizon"`
	DirectionScore float64         `json:"direction_score"` // [-1, +1]
	Strength       float64         `json:"strength"`        // [0, 1]
	Confidence     float64         `json:"confidence"`      // [0, 1]
	Features       FeatureSet      `json:"features"`
	Rationale      []string        `json:"rationale"`
}

// ConsensusSignal is the weighted combination of every analysed HorizonSignal.
type ConsensusSignal struct {
	Direction      float64         `json:"direction"` // [-1, +1]
	Confidence     float64         `json:"confidence"`
	AgreementScore float64         `json:"agreement_score"`
	Horizons       []HorizonSignal `json:"horizons"`
	Rationale      []string        `json:"rationale"`
}

// TradePlan is the final advisory output of the trade planner.
type TradePlan struct {
	State             SignalState     `json:"state"`
	Confidence        float64         `json:"confidence"`
	EntryPrice        *float64        `json:"entry_price"`
	InvalidationPrice float64         `json:"invalidation_price"`
	ValidUntilTs      int64           `json:"valid_until_ts"`
	SizeSuggestionPct float64         `json:"size_suggestion_pct"`
	Rationale         []string        `json:"rationale"`
	HorizonsAnalyzed  []domain.Interval `json:"horizons_analyzed"`
}

// Tuning constants. Thresholds and weights are fixed points from the external
// interface table; the lone scaling constant not pinned by that table (momentum's
// tanh steepness) is set so a ~3.3% move lands just under the neutral/weak boundary.
const (
	MomentumLookback    = 20
	VolatilityLookback  = 20
	MinBarsForConfidence = 10

	momentumK              = 6.0
	volatilityPenaltyC     = 2.0
	maxVolatilityPenalty   = 0.5
	stabilityC             = 10.0
	trendEpsilon           = 1e-6

	thresholdStrong  = 0.65
	thresholdWeak    = 0.20
	horizonStrong    = 0.50 // per-horizon rationale threshold, distinct from the state mapper's 0.65
	highConfidence   = 0.75
	lowConfidence    = 0.40
	highVolatility   = 0.02
	lowVolatility    = 0.01

	invalidationBufferPct = 0.02
)

// HorizonWeights is the static consensus weight table, increasing with horizon
// length.
var HorizonWeights = map[domain.Interval]float64{
	domain.Interval1m:  0.5,
	domain.Interval5m:  0.8,
	domain.Interval15m: 1.0,
	domain.Interval1h:  1.5,
	domain.Interval4h:  2.0,
	domain.Interval1d:  2.5,
	domain.Interval1w:  3.0,
}

// ValidityWindow maps each horizon to how long (in seconds) a trade plan built
// from it remains valid.
var ValidityWindow = map[domain.Interval]int64{
	domain.Interval1m:  300,
	domain.Interval5m:  3600,
	domain.Interval15m: 14400,
	domain.Interval1h:  21600,
	domain.Interval4h:  86400,
	domain.Interval1d:  432000,
	domain.Interval1w:  1209600,
}

// shortHorizons and longHorizons partition the horizon set for consensus conflict
// detection.
var shortHorizons = map[domain.Interval]bool{
	domain.Interval1m:  true,
	domain.Interval5m:  true,
	domain.Interval15m: true,
}

var longHorizons = map[domain.Interval]bool{
	domain.Interval1h: true,
	domain.Interval4h: true,
	domain.Interval1d: true,
	domain.Interval1w: true,
}

// DefaultHorizons is the horizon set analysed when a request does not specify one.
var DefaultHorizons = []domain.Interval{
	domain.Interval1m, domain.Interval5m, domain.Interval15m,
	domain.Interval1h, domain.Interval4h, domain.Interval1d,
}

// sizeByConfidence is the piecewise size-suggestion table, checked low-to-high; the
// last matching band wins and the table is monotonic non-decreasing in confidence
// by construction.
var sizeByConfidence = []struct {
	min, pct float64
}{
	{0.0, 0.25},
	{0.4, 0.5},
	{0.6, 1.0},
	{0.75, 1.5},
	{0.9, 2.0},
}

func sizeSuggestion(confidence float64) float64 {
	pct := sizeByConfidence[0].pct
	for _, band := range sizeByConfidence {
		if confidence >= band.min {
			pct = band.pct
		}
	}
	return pct
}
