package signal

import "strings"

// MapState applies the deterministic piecewise mapping from consensus direction to
// a SignalState, plus the signal_<state> and confidence-band rationale tags.
//
// Boundaries are inclusive toward the stronger state: exactly 0.20 maps to BUY,
// exactly -0.20 to SELL, exactly 0.65 to STRONG_BUY, exactly -0.65 to STRONG_SELL.
func MapState(direction, confidence float64) (SignalState, []string) {
	var state SignalState
	switch {
	case direction >= thresholdStrong:
		state = StateStrongBuy
	case direction >= thresholdWeak:
		state = StateBuy
	case direction > -thresholdWeak:
		state = StateNeutral
	case direction > -thresholdStrong:
		state = StateSell
	default:
		state = StateStrongSell
	}

	tags := []string{"signal_" + strings.ToLower(string(state))}
	switch {
	case confidence >= highConfidence:
		tags = append(tags, "high_confidence_signal")
	case confidence <= lowConfidence:
		tags = append(tags, "low_confidence_signal")
	}

	return state, tags
}
