package signal

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/nrgio/marketpulse/internal/domain"
	"github.com/nrgio/marketpulse/pkg/formulas"
)

// ExtractFeatures computes the deterministic feature set for one horizon's ordered
// bar slice (oldest first). Every output is a pure function of bars.
//
// The lookback used for momentum/volatility/avg_range is capped at MomentumLookback
// but shrinks to whatever history is actually available (min(L, n-1)); a horizon
// with fewer bars than the full window still gets a real directional reading, just
// a noisier one, which the confidence scorer separately discounts via sufficiency.
// Only a single bar (nothing to diff against) yields an all-zero feature set.
func ExtractFeatures(bars []domain.Bar) FeatureSet {
	n := len(bars)
	fs := FeatureSet{NBars: n}

	if n < 2 {
		return fs
	}

	lookback := MomentumLookback
	if n-1 < lookback {
		lookback = n - 1
	}

	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	// talib.Roc returns the rate of change (as a percentage) for every index with
	// inTimePeriod lookback; the last element is the one the lookback window calls for.
	roc := talib.Roc(closes, lookback)
	r := roc[len(roc)-1] / 100.0
	fs.Momentum = math.Tanh(momentumK * r)

	logReturns := formulas.LogReturns(closes)
	window := logReturns
	if len(window) > VolatilityLookback {
		window = window[len(window)-VolatilityLookback:]
	}
	if len(window) > 1 {
		fs.Volatility = stat.StdDev(window, nil)
	}

	fs.TrendDir = formulas.Sign(fs.Momentum, trendEpsilon)
	fs.Stability = formulas.Clamp(1/(1+stabilityC*fs.Volatility), 0, 1)

	rangeWindow := bars[n-lookback:]
	ranges := make([]float64, len(rangeWindow))
	for i, b := range rangeWindow {
		ranges[i] = b.High - b.Low
	}
	fs.AvgRange = formulas.Mean(ranges)

	return fs
}
