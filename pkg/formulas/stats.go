// Package formulas holds small numeric helpers used by the signal engine. Kept dependency-free (stdlib math only) since these are primitive
// arithmetic utilities, not statistical procedures — the statistical work itself
// (stddev, ROC) is delegated to gonum/stat and go-talib in internal/signal.
package formulas

import "math"

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sign returns -1, 0, or +1. Values within eps of zero are treated as zero.
func Sign(v, eps float64) int {
	if math.Abs(v) < eps {
		return 0
	}
	if v < 0 {
		return -1
	}
	return 1
}

// Mean returns the arithmetic mean of vs, or 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// LogReturns computes log(closes[i]/closes[i-1]) for consecutive closes.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(closes[i]/prev))
	}
	return out
}
