package signal

import (
	"fmt"
	"math"

	"github.com/nrgio/marketpulse/internal/domain"
	"github.com/nrgio/marketpulse/pkg/formulas"
)

// BuildHorizonSignal composes the feature extractor and confidence scorer into one
// horizon's directional signal, with rationale tags derived from fixed thresholds.
func BuildHorizonSignal(horizon domain.Interval, bars []domain.Bar) HorizonSignal {
	features := ExtractFeatures(bars)
	confidence := ComputeConfidence(horizon, bars, features.Volatility)

	directionScore := formulas.Clamp(features.Momentum*features.Stability, -1, 1)
	strength := formulas.Clamp(math.Abs(features.Momentum), 0, 1)

	return HorizonSignal{
		Horizon:        horizon,
		DirectionScore: directionScore,
		Strength:       strength,
		Confidence:     confidence,
		Features:       features,
		Rationale:      horizonRationale(horizon, directionScore, features, confidence),
	}
}

func horizonRationale(horizon domain.Interval, directionScore float64, features FeatureSet, confidence float64) []string {
	h := string(horizon)
	tags := make([]string, 0, 4)

	switch {
	case directionScore >= horizonStrong:
		tags = append(tags, fmt.Sprintf("%s_strong_bullish", h))
	case directionScore >= thresholdWeak:
		tags = append(tags, fmt.Sprintf("%s_weak_bullish", h))
	case directionScore <= -horizonStrong:
		tags = append(tags, fmt.Sprintf("%s_strong_bearish", h))
	case directionScore <= -thresholdWeak:
		tags = append(tags, fmt.Sprintf("%s_weak_bearish", h))
	default:
		tags = append(tags, fmt.Sprintf("%s_neutral", h))
	}

	switch {
	case features.Volatility >= highVolatility:
		tags = append(tags, fmt.Sprintf("%s_high_volatility", h))
	case features.Volatility <= lowVolatility:
		tags = append(tags, fmt.Sprintf("%s_low_volatility", h))
	}

	switch {
	case confidence >= highConfidence:
		tags = append(tags, fmt.Sprintf("%s_high_confidence", h))
	case confidence <= lowConfidence:
		tags = append(tags, fmt.Sprintf("%s_low_confidence", h))
	}

	if features.NBars < MinBarsForConfidence {
		tags = append(tags, fmt.Sprintf("%s_low_data_quality", h))
	}

	return tags
}
