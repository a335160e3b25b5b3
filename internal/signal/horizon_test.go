package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nrgio/marketpulse/internal/domain"
)

func TestBuildHorizonSignal_FewBarsYieldsLowDataQualityTag(t *testing.T) {
	bars := closesBars("SYM", []float64{100, 101}, 3600)
	hs := BuildHorizonSignal(domain.Interval1h, bars)

	assert.Contains(t, hs.Rationale, "1h_low_data_quality")
}

func TestBuildHorizonSignal_FullHistoryOmitsLowDataQualityTag(t *testing.T) {
	bars := closesBars("SYM", ascendingCloses(100, 21), 3600)
	hs := BuildHorizonSignal(domain.Interval1h, bars)

	assert.NotContains(t, hs.Rationale, "1h_low_data_quality")
}

func TestBuildHorizonSignal_VolatileFullHistoryOmitsLowDataQualityTag(t *testing.T) {
	// Full history but wildly alternating closes: whatever confidence tag this
	// produces comes from the volatility penalty, not a shortage of bars, so the
	// data-quality tag must stay off even if low_confidence fires.
	closes := make([]float64, 21)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 140
		}
	}
	bars := closesBars("SYM", closes, 3600)
	hs := BuildHorizonSignal(domain.Interval1h, bars)

	assert.NotContains(t, hs.Rationale, "1h_low_data_quality")
}
