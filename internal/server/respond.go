package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrgio/marketpulse/internal/barstore"
	"github.com/nrgio/marketpulse/internal/ingest/supervisor"
	"github.com/nrgio/marketpulse/internal/signal"
)

// handlers holds every dependency the route handlers read from. None of it is
// mutated after construction.
type handlers struct {
	reader     barstore.Reader
	supervisor *supervisor.Supervisor
	engine     *signal.Engine
	startedAt  time.Time
	log        zerolog.Logger
}

// errorResponse is the machine-readable shape for every HTTP 4xx/5xx.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, reason string, err error) {
	msg := reason
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Reason: msg})
}
