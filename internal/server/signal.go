package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrgio/marketpulse/internal/domain"
	"github.com/nrgio/marketpulse/internal/explain"
	"github.com/nrgio/marketpulse/internal/signal"
)

const (
	defaultBarLimit = 200
	minBarLimit     = 20
	maxBarLimit     = 500
)

type signalRequest struct {
	Symbol   string   `json:"symbol"`
	Horizons []string `json:"horizons"`
	BarLimit int      `json:"bar_limit"`
	Explain  bool     `json:"explain"`
	Debug    bool     `json:"debug"`
}

// signalResponseBody is signal.SignalResponse plus the optional presentational
// additions, none of which feed back into the analytical result.
type signalResponseBody struct {
	signal.SignalResponse
	RequestID   string                       `json:"request_id"`
	Explanation *explain.Explanation         `json:"explanation,omitempty"`
	Confidence  *explain.ConfidenceBreakdown `json:"confidence_breakdown,omitempty"`
	Debug       *explain.DebugTrace          `json:"debug,omitempty"`
}

func (h *handlers) handleSignal(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	log := h.log.With().Str("request_id", requestID).Logger()

	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", err)
		return
	}

	req.Symbol = symbolUpper(req.Symbol)
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required", nil)
		return
	}

	horizons, err := parseHorizons(req.Horizons)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown horizon", err)
		return
	}

	barLimit := req.BarLimit
	if barLimit == 0 {
		barLimit = defaultBarLimit
	}
	if barLimit < minBarLimit || barLimit > maxBarLimit {
		writeError(w, http.StatusBadRequest, "bar_limit must be between 20 and 500", nil)
		return
	}

	resp, err := h.engine.Evaluate(r.Context(), req.Symbol, horizons, barLimit, time.Now().Unix())
	if err != nil {
		log.Error().Err(err).Str("symbol", req.Symbol).Msg("signal evaluation failed")
		writeError(w, http.StatusInternalServerError, "bar store unavailable", err)
		return
	}

	body := signalResponseBody{SignalResponse: resp, RequestID: requestID}

	allTags := make([]string, 0, len(resp.Tags)+len(resp.TradePlan.Rationale))
	allTags = append(allTags, resp.Tags...)
	allTags = append(allTags, resp.TradePlan.Rationale...)

	if req.Explain {
		exp := explain.BuildExplanation(allTags)
		body.Explanation = &exp
		conf := explain.BuildConfidenceBreakdown(resp.Consensus)
		body.Confidence = &conf
	}
	if req.Debug {
		trace := explain.BuildDebugTrace(resp.Consensus, allTags)
		trace.Note = trace.Note + " request_id=" + requestID
		body.Debug = &trace
	}

	writeJSON(w, http.StatusOK, body)
}

func symbolUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func parseHorizons(raw []string) ([]domain.Interval, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	horizons := make([]domain.Interval, 0, len(raw))
	for _, h := range raw {
		iv, err := domain.ParseInterval(h)
		if err != nil {
			return nil, err
		}
		horizons = append(horizons, iv)
	}
	return horizons, nil
}
