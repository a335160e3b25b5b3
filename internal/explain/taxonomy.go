package explain

import (
	"fmt"
	"strings"

	"github.com/nrgio/marketpulse/internal/domain"
)

type taxonomyEntry struct {
	category Category
	sentence string
}

// exactTags is the lookup map for rationale tags that don't vary per horizon.
// It is consulted only as a lookup — never ranged over — so the map's own
// iteration order never leaks into an explanation; the order Drivers/Risks/Notes
// are emitted in is entirely driven by the order of the input tag slice.
var exactTags = map[string]taxonomyEntry{
	"signal_strong_buy":  {CategoryDriver, "Consensus direction is strongly bullish across analysed horizons."},
	"signal_buy":         {CategoryDriver, "Consensus direction is bullish across analysed horizons."},
	"signal_neutral":     {CategoryNote, "Consensus direction is not decisive enough to recommend a position."},
	"signal_sell":        {CategoryDriver, "Consensus direction is bearish across analysed horizons."},
	"signal_strong_sell": {CategoryDriver, "Consensus direction is strongly bearish across analysed horizons."},

	"high_confidence_signal": {CategoryDriver, "Overall confidence in this signal is high."},
	"low_confidence_signal":  {CategoryRisk, "Overall confidence in this signal is low."},

	"strong_agreement":   {CategoryNote, "Analysed horizons strongly agree on direction."},
	"moderate_agreement": {CategoryNote, "Analysed horizons moderately agree on direction."},
	"weak_agreement":     {CategoryRisk, "Analysed horizons show weak agreement on direction."},

	"conflicting_signals": {CategoryRisk, "Some analysed horizons point in opposite directions."},
	"majority_bullish":    {CategoryDriver, "A majority of analysed horizons are bullish."},
	"majority_bearish":    {CategoryDriver, "A majority of analysed horizons are bearish."},
	"mixed_directions":    {CategoryNote, "Analysed horizons are evenly split between bullish and bearish."},

	"short_term_bullish_long_term_bearish": {CategoryRisk, "Short-term horizons are bullish while long-term horizons are bearish."},
	"long_term_bullish_short_term_bearish": {CategoryRisk, "Long-term horizons are bullish while short-term horizons are bearish."},

	"no_data": {CategoryRisk, "No bar data was available for any requested horizon."},

	"low_agreement_warning": {CategoryRisk, "Cross-horizon agreement is too low to trust the trade plan's entry fully."},

	"long_position":      {CategoryDriver, "The trade plan recommends a long position."},
	"short_position":     {CategoryDriver, "The trade plan recommends a short position."},
	"no_position_neutral": {CategoryNote, "The trade plan recommends no position."},

	"size_minimal":  {CategoryNote, "Suggested position size is minimal given current confidence."},
	"size_small":    {CategoryNote, "Suggested position size is small given current confidence."},
	"size_moderate": {CategoryNote, "Suggested position size is moderate given current confidence."},
	"size_large":    {CategoryNote, "Suggested position size is large given current confidence."},
	"size_max":      {CategoryNote, "Suggested position size is at its maximum given current confidence."},
}

// horizonSuffixes is the lookup map for the suffix half of per-horizon tags
// (formatted as "<horizon>_<suffix>"). Like exactTags it is never ranged over.
var horizonSuffixes = map[string]func(h string) taxonomyEntry{
	"strong_bullish": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryDriver, fmt.Sprintf("The %s horizon shows strong bullish momentum.", h)}
	},
	"weak_bullish": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryNote, fmt.Sprintf("The %s horizon shows weak bullish momentum.", h)}
	},
	"neutral": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryNote, fmt.Sprintf("The %s horizon shows no clear directional momentum.", h)}
	},
	"weak_bearish": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryNote, fmt.Sprintf("The %s horizon shows weak bearish momentum.", h)}
	},
	"strong_bearish": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryDriver, fmt.Sprintf("The %s horizon shows strong bearish momentum.", h)}
	},
	"high_volatility": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryRisk, fmt.Sprintf("The %s horizon is experiencing high volatility.", h)}
	},
	"low_volatility": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryNote, fmt.Sprintf("The %s horizon is unusually quiet.", h)}
	},
	"high_confidence": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryDriver, fmt.Sprintf("The %s horizon's reading is backed by ample, continuous, low-volatility data.", h)}
	},
	"low_confidence": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryRisk, fmt.Sprintf("The %s horizon's reading is backed by limited or noisy data.", h)}
	},
	"low_data_quality": func(h string) taxonomyEntry {
		return taxonomyEntry{CategoryRisk, fmt.Sprintf("The %s horizon has too few bars for a reliable reading.", h)}
	},
}

// lookup resolves a single rationale tag to a taxonomy entry, trying the exact
// table first and then the horizon-prefixed suffix table. Unknown tags fall back
// to a generic note so every tag always produces a sentence.
func lookup(tag string) taxonomyEntry {
	if e, ok := exactTags[tag]; ok {
		return e
	}
	for _, h := range domain.AllIntervals {
		prefix := string(h) + "_"
		if strings.HasPrefix(tag, prefix) {
			if fn, ok := horizonSuffixes[strings.TrimPrefix(tag, prefix)]; ok {
				return fn(string(h))
			}
		}
	}
	return taxonomyEntry{CategoryNote, fmt.Sprintf("Additional consideration: %s.", tag)}
}
