package explain

import (
	"github.com/nrgio/marketpulse/internal/signal"
)

// BuildExplanation categorises an already-computed tag list into driver, risk, and
// note sentences. It iterates the input slice in order and never ranges over a map,
// so the result is deterministic for a given tag list.
func BuildExplanation(tags []string) Explanation {
	exp := Explanation{
		Drivers: make([]string, 0, len(tags)),
		Risks:   make([]string, 0, len(tags)),
		Notes:   make([]string, 0, len(tags)),
	}

	for _, tag := range tags {
		entry := lookup(tag)
		switch entry.category {
		case CategoryDriver:
			exp.Drivers = append(exp.Drivers, entry.sentence)
		case CategoryRisk:
			exp.Risks = append(exp.Risks, entry.sentence)
		default:
			exp.Notes = append(exp.Notes, entry.sentence)
		}
	}

	return exp
}

// BuildConfidenceBreakdown reports the consensus confidence, the mean confidence
// across contributing horizons, and the agreement score, with fixed prose labels.
// It performs no analysis of its own — every number is read straight off an
// already-built ConsensusSignal.
func BuildConfidenceBreakdown(consensus signal.ConsensusSignal) ConfidenceBreakdown {
	var sum float64
	for _, h := range consensus.Horizons {
		sum += h.Confidence
	}
	dataQuality := 0.0
	if n := len(consensus.Horizons); n > 0 {
		dataQuality = sum / float64(n)
	}

	return ConfidenceBreakdown{
		Total:            consensus.Confidence,
		TotalLabel:       totalLabel,
		DataQuality:      dataQuality,
		DataQualityLabel: dataQualityLabel,
		Agreement:        consensus.AgreementScore,
		AgreementLabel:   agreementLabel,
	}
}
