package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/nrgio/marketpulse/internal/domain"
)

const (
	defaultBarsLimit = 500
	minBarsLimit     = 1
	maxBarsLimit     = 1000
)

// barsResponse wraps the documented "array of bars" shape with the query echoed
// back, so callers don't have to track what they asked for across a clamp.
type barsResponse struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Bars     []domain.Bar `json:"bars"`
}

// handleBars serves GET /v1/bars. For intervals above 1m the most recent bar may be
// a partial bucket that is still forming: the aggregator rewrites it as each new
// 1-minute bar of that bucket arrives.
func (h *handlers) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required", nil)
		return
	}

	interval, err := domain.ParseInterval(r.URL.Query().Get("interval"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown interval", err)
		return
	}

	limit := clampLimit(r.URL.Query().Get("limit"), defaultBarsLimit, minBarsLimit, maxBarsLimit)

	bars, err := h.reader.RangeQuery(r.Context(), symbol, interval, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bar store unavailable", err)
		return
	}

	writeJSON(w, http.StatusOK, barsResponse{Symbol: symbol, Interval: string(interval), Bars: bars})
}

// instrumentsResponse is the documented /v1/meta/instruments shape.
type instrumentsResponse struct {
	Symbols   []string                  `json:"symbols"`
	Intervals []string                  `json:"intervals"`
	Counts    map[string]map[string]int `json:"counts"`
}

func (h *handlers) handleInstruments(w http.ResponseWriter, r *http.Request) {
	minBars1m := 0
	if raw := r.URL.Query().Get("min_bars_1m"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "min_bars_1m must be a non-negative integer", nil)
			return
		}
		minBars1m = n
	}

	counts, err := h.reader.Counts(r.Context(), minBars1m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bar store unavailable", err)
		return
	}

	symbols := make([]string, 0, len(counts))
	for sym := range counts {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	intervals := make([]string, 0, len(domain.AllIntervals))
	for _, iv := range domain.AllIntervals {
		intervals = append(intervals, string(iv))
	}

	writeJSON(w, http.StatusOK, instrumentsResponse{
		Symbols:   symbols,
		Intervals: intervals,
		Counts:    counts,
	})
}

func clampLimit(raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
