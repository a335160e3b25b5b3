package signal

import (
	"math"

	"github.com/nrgio/marketpulse/internal/domain"
	"github.com/nrgio/marketpulse/pkg/formulas"
)

// expectedBars is the bar count a horizon's feature extraction needs to be fully
// warmed up: the lookback window plus one anchor bar, the same for every horizon
// since each operates on its own bar series at that series' native spacing.
const expectedBars = MomentumLookback + 1

// sufficiency scores how close n_bars is to expectedBars, with a floor that keeps
// confidence low whenever the caller fell short of MinBarsForConfidence.
func sufficiency(nBars int) float64 {
	s := math.Min(1.0, float64(nBars)/float64(expectedBars))
	if nBars < MinBarsForConfidence {
		s = math.Min(s, 0.49)
	}
	return s
}

// continuity scores how evenly the bar timestamps are spaced at the horizon's
// native interval. Non-monotonic timestamps force continuity below 0.5.
func continuity(bars []domain.Bar, horizon domain.Interval) float64 {
	if len(bars) < 2 {
		return 1.0
	}
	step := horizon.Seconds()
	monotonic := true
	misaligned := 0
	steps := 0
	for i := 1; i < len(bars); i++ {
		d := bars[i].Ts - bars[i-1].Ts
		steps++
		if d <= 0 {
			monotonic = false
			continue
		}
		if d != step {
			misaligned++
		}
	}
	c := 1.0 - float64(misaligned)/float64(steps)
	if !monotonic && c >= 0.5 {
		c = 0.49
	}
	return formulas.Clamp(c, 0, 1)
}

// volatilityPenalty discounts confidence for noisy horizons, capped so a single
// volatile horizon can never zero out confidence on its own.
func volatilityPenalty(volatility float64) float64 {
	return 1 - math.Min(maxVolatilityPenalty, volatilityPenaltyC*volatility)
}

// ComputeConfidence composes sufficiency, continuity, and the volatility penalty
// into the [0,1] confidence score for one horizon.
func ComputeConfidence(horizon domain.Interval, bars []domain.Bar, volatility float64) float64 {
	c := sufficiency(len(bars)) * continuity(bars, horizon) * volatilityPenalty(volatility)
	return formulas.Clamp(c, 0, 1)
}
