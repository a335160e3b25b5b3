package signal

import (
	"github.com/nrgio/marketpulse/internal/domain"
)

// sizeBandTags mirrors sizeByConfidence band-for-band so the rationale names the
// band a trade plan landed in.
var sizeBandTags = []string{
	"size_minimal",
	"size_small",
	"size_moderate",
	"size_large",
	"size_max",
}

func sizeBandTag(confidence float64) string {
	tag := sizeBandTags[0]
	for i, band := range sizeByConfidence {
		if confidence >= band.min {
			tag = sizeBandTags[i]
		}
	}
	return tag
}

// BuildTradePlan derives entry, invalidation, validity, and size from the mapped
// state and the primary horizon's most recent bars.
func BuildTradePlan(state SignalState, confidence, agreementScore float64, primaryHorizon domain.Interval, primaryBars []domain.Bar, horizonsAnalyzed []domain.Interval, now int64) TradePlan {
	plan := TradePlan{
		State:             state,
		Confidence:        confidence,
		SizeSuggestionPct: sizeSuggestion(confidence),
		ValidUntilTs:      now + ValidityWindow[primaryHorizon],
		HorizonsAnalyzed:  horizonsAnalyzed,
	}

	var lastClose float64
	var lowBound, highBound float64
	haveBars := len(primaryBars) > 0
	if haveBars {
		lastClose = primaryBars[len(primaryBars)-1].Close
		lowBound = primaryBars[0].Low
		highBound = primaryBars[0].High
		for _, b := range primaryBars {
			if b.Low < lowBound {
				lowBound = b.Low
			}
			if b.High > highBound {
				highBound = b.High
			}
		}
	}

	if state != StateNeutral && haveBars {
		entry := lastClose
		plan.EntryPrice = &entry
	}

	switch state {
	case StateBuy, StateStrongBuy:
		inv := lowBound * (1 - invalidationBufferPct)
		if !haveBars || inv >= lastClose {
			inv = lastClose * (1 - invalidationBufferPct)
		}
		plan.InvalidationPrice = inv
	case StateSell, StateStrongSell:
		inv := highBound * (1 + invalidationBufferPct)
		if !haveBars || inv <= lastClose {
			inv = lastClose * (1 + invalidationBufferPct)
		}
		plan.InvalidationPrice = inv
	default: // NEUTRAL: nearer of the two computed bounds to the last close
		buyBound := lowBound * (1 - invalidationBufferPct)
		sellBound := highBound * (1 + invalidationBufferPct)
		if !haveBars {
			plan.InvalidationPrice = 0
		} else if (lastClose - buyBound) <= (sellBound - lastClose) {
			plan.InvalidationPrice = buyBound
		} else {
			plan.InvalidationPrice = sellBound
		}
	}

	rationale := []string{"signal_" + stateSuffix(state)}
	switch state {
	case StateBuy, StateStrongBuy:
		rationale = append(rationale, "long_position")
	case StateSell, StateStrongSell:
		rationale = append(rationale, "short_position")
	default:
		rationale = append(rationale, "no_position_neutral")
	}
	rationale = append(rationale, sizeBandTag(confidence))
	if agreementScore < 0.5 {
		rationale = append(rationale, "low_agreement_warning")
	}
	plan.Rationale = rationale

	return plan
}

func stateSuffix(s SignalState) string {
	switch s {
	case StateStrongBuy:
		return "strong_buy"
	case StateBuy:
		return "buy"
	case StateSell:
		return "sell"
	case StateStrongSell:
		return "strong_sell"
	default:
		return "neutral"
	}
}
