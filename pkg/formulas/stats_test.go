package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		lo, hi   float64
		expected float64
	}{
		{"within range", 0.5, 0, 1, 0.5},
		{"below range", -1, 0, 1, 0},
		{"above range", 2, 0, 1, 1},
		{"negative range", -0.3, -1, 1, -0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clamp(tt.v, tt.lo, tt.hi))
		})
	}
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1, Sign(0.5, 0.01))
	assert.Equal(t, -1, Sign(-0.5, 0.01))
	assert.Equal(t, 0, Sign(0.001, 0.01))
	assert.Equal(t, 0, Sign(0, 0.01))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestLogReturns(t *testing.T) {
	closes := []float64{100, 110, 99}
	got := LogReturns(closes)
	require := assert.New(t)
	require.Len(got, 2)
	require.InDelta(math.Log(1.1), got[0], 1e-9)
	require.InDelta(math.Log(99.0/110.0), got[1], 1e-9)

	assert.Nil(t, LogReturns([]float64{100}))
}
