package explain

import "github.com/nrgio/marketpulse/internal/signal"

const noRecalculationNote = "Values below are copied verbatim from the signal response; no recalculation was performed."

// HorizonDebug is the raw, unmodified per-horizon contribution to a debug trace.
type HorizonDebug struct {
	Horizon        string            `json:"horizon"`
	Features       signal.FeatureSet `json:"features"`
	DirectionScore float64           `json:"direction_score"`
	Strength       float64           `json:"strength"`
	Confidence     float64           `json:"confidence"`
	Rationale      []string          `json:"rationale"`
}

// DebugTrace is the optional, opt-in verbatim dump of every number and tag that
// fed into a signal response's consensus.
type DebugTrace struct {
	Horizons   []HorizonDebug `json:"horizons"`
	Direction  float64        `json:"direction"`
	Confidence float64        `json:"confidence"`
	Agreement  float64        `json:"agreement"`
	Tags       []string       `json:"tags"`
	Note       string         `json:"note"`
}

// BuildDebugTrace copies every horizon's raw features and the consensus's own
// numbers into a flat, inspectable structure. Nothing here is derived; it is a
// verbatim restatement of values internal/signal already computed.
func BuildDebugTrace(consensus signal.ConsensusSignal, tags []string) DebugTrace {
	horizons := make([]HorizonDebug, 0, len(consensus.Horizons))
	for _, h := range consensus.Horizons {
		horizons = append(horizons, HorizonDebug{
			Horizon:        string(h.Horizon),
			Features:       h.Features,
			DirectionScore: h.DirectionScore,
			Strength:       h.Strength,
			Confidence:     h.Confidence,
			Rationale:      h.Rationale,
		})
	}

	return DebugTrace{
		Horizons:   horizons,
		Direction:  consensus.Direction,
		Confidence: consensus.Confidence,
		Agreement:  consensus.AgreementScore,
		Tags:       tags,
		Note:       noRecalculationNote,
	}
}
