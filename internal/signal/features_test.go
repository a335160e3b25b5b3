package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nrgio/marketpulse/internal/domain"
)

func closesBars(symbol string, closes []float64, stepSeconds int64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol: symbol,
			Ts:     int64(i) * stepSeconds,
			Open:   c,
			High:   c + 0.1,
			Low:    c - 0.1,
			Close:  c,
			Volume: 1.0,
		}
	}
	return bars
}

func ascendingCloses(start float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)
	}
	return closes
}

func descendingCloses(start float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start - float64(i)
	}
	return closes
}

func TestExtractFeatures_SingleBarIsAllZero(t *testing.T) {
	fs := ExtractFeatures(closesBars("SYM", []float64{100}, 60))
	assert.Equal(t, 1, fs.NBars)
	assert.Zero(t, fs.Momentum)
	assert.Zero(t, fs.Volatility)
	assert.Zero(t, fs.TrendDir)
}

func TestExtractFeatures_UptrendYieldsPositiveMomentum(t *testing.T) {
	fs := ExtractFeatures(closesBars("SYM", ascendingCloses(100, 21), 60))
	assert.Greater(t, fs.Momentum, 0.0)
	assert.Equal(t, 1, fs.TrendDir)
	assert.GreaterOrEqual(t, fs.Stability, 0.0)
	assert.LessOrEqual(t, fs.Stability, 1.0)
}

func TestExtractFeatures_DowntrendYieldsNegativeMomentum(t *testing.T) {
	fs := ExtractFeatures(closesBars("SYM", descendingCloses(120, 21), 60))
	assert.Less(t, fs.Momentum, 0.0)
	assert.Equal(t, -1, fs.TrendDir)
}

func TestExtractFeatures_ShortSeriesStillProducesReading(t *testing.T) {
	// Fewer bars than the full lookback window still yields a non-zero directional
	// reading from whatever history exists; confidence separately discounts it.
	fs := ExtractFeatures(closesBars("SYM", ascendingCloses(100, 11), 60))
	assert.Equal(t, 11, fs.NBars)
	assert.Greater(t, fs.Momentum, 0.0)
}

func TestExtractFeatures_FlatSeriesHasZeroMomentumAndVolatility(t *testing.T) {
	flat := make([]float64, 21)
	for i := range flat {
		flat[i] = 100.0
	}
	fs := ExtractFeatures(closesBars("SYM", flat, 60))
	assert.InDelta(t, 0.0, fs.Momentum, 1e-9)
	assert.InDelta(t, 0.0, fs.Volatility, 1e-9)
	assert.Equal(t, 0, fs.TrendDir)
	assert.InDelta(t, 1.0, fs.Stability, 1e-9)
}

func TestExtractFeatures_AvgRangeMatchesConstantSpread(t *testing.T) {
	fs := ExtractFeatures(closesBars("SYM", ascendingCloses(100, 21), 60))
	assert.InDelta(t, 0.2, fs.AvgRange, 1e-9) // high-low is a constant 0.2 spread per bar
}
