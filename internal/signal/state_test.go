package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapState_BoundariesResolveExactly(t *testing.T) {
	cases := []struct {
		direction float64
		want      SignalState
	}{
		{0.65, StateStrongBuy},
		{0.649999, StateBuy},
		{0.20, StateBuy},
		{0.199999, StateNeutral},
		{-0.199999, StateNeutral},
		{-0.20, StateSell},
		{-0.649999, StateSell},
		{-0.65, StateStrongSell},
	}
	for _, tc := range cases {
		got, _ := MapState(tc.direction, 0.5)
		assert.Equal(t, tc.want, got, "direction=%v", tc.direction)
	}
}

func TestMapState_IsTotalAcrossFullRange(t *testing.T) {
	// Invariant 3: state mapping is a total function; sweep the full range in fine
	// steps and confirm every value resolves to one of the five known states.
	known := map[SignalState]bool{
		StateStrongBuy: true, StateBuy: true, StateNeutral: true,
		StateSell: true, StateStrongSell: true,
	}
	for d := -1.5; d <= 1.5; d += 0.01 {
		state, _ := MapState(d, 0.5)
		assert.True(t, known[state], "unmapped direction %v -> %v", d, state)
	}
}

func TestMapState_ConfidenceTags(t *testing.T) {
	_, highTags := MapState(0.5, 0.9)
	assert.Contains(t, highTags, "high_confidence_signal")

	_, lowTags := MapState(0.5, 0.2)
	assert.Contains(t, lowTags, "low_confidence_signal")

	_, midTags := MapState(0.5, 0.6)
	assert.NotContains(t, midTags, "high_confidence_signal")
	assert.NotContains(t, midTags, "low_confidence_signal")
}
