package aggregator

import "github.com/nrgio/marketpulse/internal/domain"

// aggregateBucket folds a ts-ascending slice of 1-minute bars covering one bucket
// into a single higher-interval bar: first open, last close, min low, max high, summed
// volume.
func aggregateBucket(symbol string, interval domain.Interval, bucketStart int64, bars []domain.Bar) domain.Bar {
	out := domain.Bar{
		Symbol:   symbol,
		Interval: interval,
		Ts:       bucketStart,
		Open:     bars[0].Open,
		High:     bars[0].High,
		Low:      bars[0].Low,
		Close:    bars[len(bars)-1].Close,
	}
	for _, b := range bars {
		if b.High > out.High {
			out.High = b.High
		}
		if b.Low < out.Low {
			out.Low = b.Low
		}
		out.Volume += b.Volume
	}
	return out
}
