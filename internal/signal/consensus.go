package signal

import (
	"github.com/nrgio/marketpulse/pkg/formulas"
)

// BuildConsensus weights every contributing HorizonSignal by its static horizon
// weight and confidence into a single directional verdict.
func BuildConsensus(signals []HorizonSignal) ConsensusSignal {
	var weightedSum, weightSum, confidenceSum float64
	var posCount, negCount, nonzeroCount int
	var netShort, netLong float64

	for _, s := range signals {
		w := HorizonWeights[s.Horizon]
		weightedSum += s.DirectionScore * s.Confidence * w
		weightSum += s.Confidence * w
		confidenceSum += s.Confidence

		sign := formulas.Sign(s.DirectionScore, trendEpsilon)
		switch sign {
		case 1:
			posCount++
			nonzeroCount++
		case -1:
			negCount++
			nonzeroCount++
		}

		if shortHorizons[s.Horizon] {
			netShort += s.DirectionScore
		}
		if longHorizons[s.Horizon] {
			netLong += s.DirectionScore
		}
	}

	direction := 0.0
	if weightSum != 0 {
		direction = weightedSum / weightSum
	}

	agreement := 1.0
	if nonzeroCount > 0 {
		minCount := posCount
		if negCount < minCount {
			minCount = negCount
		}
		agreement = formulas.Clamp(1-2*float64(minCount)/float64(nonzeroCount), 0, 1)
	}

	confidenceMean := 0.0
	if len(signals) > 0 {
		confidenceMean = confidenceSum / float64(len(signals))
	}

	return ConsensusSignal{
		Direction:      direction,
		Confidence:     confidenceMean * agreement,
		AgreementScore: agreement,
		Horizons:       signals,
		Rationale:      consensusRationale(agreement, posCount, negCount, netShort, netLong),
	}
}

func consensusRationale(agreement float64, posCount, negCount int, netShort, netLong float64) []string {
	tags := make([]string, 0, 4)

	if netShort > 0 && netLong < 0 {
		tags = append(tags, "short_term_bullish_long_term_bearish")
	} else if netShort < 0 && netLong > 0 {
		tags = append(tags, "long_term_bullish_short_term_bearish")
	}

	switch {
	case agreement >= 0.8:
		tags = append(tags, "strong_agreement")
	case agreement >= 0.5:
		tags = append(tags, "moderate_agreement")
	default:
		tags = append(tags, "weak_agreement")
	}

	if agreement < 0.5 && posCount > 0 && negCount > 0 {
		tags = append(tags, "conflicting_signals")
	}

	switch {
	case posCount > negCount:
		tags = append(tags, "majority_bullish")
	case negCount > posCount:
		tags = append(tags, "majority_bearish")
	default:
		tags = append(tags, "mixed_directions")
	}

	return tags
}
