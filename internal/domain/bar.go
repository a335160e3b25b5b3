// Package domain holds the core types shared across ingestion, aggregation, and the
// signal engine. It has no infrastructure dependencies.
package domain

import (
	"fmt"
	"strings"
)

// Interval is a canonical bar duration label.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// intervalSeconds is the authoritative duration table for every supported interval.
var intervalSeconds = map[Interval]int64{
	Interval1m:  60,
	Interval5m:  5 * 60,
	Interval15m: 15 * 60,
	Interval1h:  60 * 60,
	Interval4h:  4 * 60 * 60,
	Interval1d:  24 * 60 * 60,
	Interval1w:  7 * 24 * 60 * 60,
}

// Seconds returns the bucket width of the interval, or 0 if it is not recognised.
func (i Interval) Seconds() int64 {
	return intervalSeconds[i]
}

// Valid reports whether i is one of the supported interval labels.
func (i Interval) Valid() bool {
	_, ok := intervalSeconds[i]
	return ok
}

// AllIntervals lists every supported interval, ordered shortest to longest. Order
// matters for deterministic iteration (rationale emission, consensus weighting).
var AllIntervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval1h, Interval4h, Interval1d, Interval1w,
}

// ParseInterval validates and normalises an interval string.
func ParseInterval(s string) (Interval, error) {
	i := Interval(strings.TrimSpace(s))
	if !i.Valid() {
		return "", fmt.Errorf("domain: unknown interval %q", s)
	}
	return i, nil
}

// Bar is an immutable OHLCV record for one (symbol, interval, ts) bucket.
type Bar struct {
	Symbol   string   `json:"symbol"`
	Interval Interval `json:"interval"`
	Ts       int64    `json:"ts"` // Unix seconds, UTC, bucket start
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	Volume   float64  `json:"volume"`
}

// Validate checks the invariants every persisted bar must satisfy.
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("domain: bar missing symbol")
	}
	if b.Symbol != strings.ToUpper(b.Symbol) {
		return fmt.Errorf("domain: bar symbol %q must be uppercase", b.Symbol)
	}
	if !b.Interval.Valid() {
		return fmt.Errorf("domain: bar %s has unknown interval %q", b.Symbol, b.Interval)
	}
	if b.Ts < 0 || b.Ts%b.Interval.Seconds() != 0 {
		return fmt.Errorf("domain: bar %s/%s ts %d is not aligned to %ds bucket", b.Symbol, b.Interval, b.Ts, b.Interval.Seconds())
	}
	lowBound := minF(b.Open, b.Close)
	highBound := maxF(b.Open, b.Close)
	if b.Low > lowBound+1e-9 {
		return fmt.Errorf("domain: bar %s/%s/%d low %v exceeds min(open,close) %v", b.Symbol, b.Interval, b.Ts, b.Low, lowBound)
	}
	if b.High < highBound-1e-9 {
		return fmt.Errorf("domain: bar %s/%s/%d high %v below max(open,close) %v", b.Symbol, b.Interval, b.Ts, b.High, highBound)
	}
	if b.Volume < 0 {
		return fmt.Errorf("domain: bar %s/%s/%d has negative volume %v", b.Symbol, b.Interval, b.Ts, b.Volume)
	}
	return nil
}

// BucketStart returns the start of the bucket of width interval that contains ts,
// anchored to the Unix epoch in UTC. Weekly buckets use the same rule with
// interval=604800s, which anchors weeks to the Unix-epoch Thursday rather than
// Monday 00:00 UTC. This is accepted as canonical, not a bug.
func BucketStart(ts int64, interval Interval) int64 {
	width := interval.Seconds()
	if width <= 0 {
		return ts
	}
	return (ts / width) * width
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
