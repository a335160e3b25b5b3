package server

import "net/http"

// providersResponse is the documented /v1/providers shape.
type providersResponse struct {
	Mode              string   `json:"mode"`
	ActiveTransport   string   `json:"active_transport"`
	Symbols           []string `json:"symbols"`
	PollIntervalSecs  float64  `json:"poll_interval_seconds"`
	FallbackTriggered bool     `json:"rest_fallback_triggered"`
}

func (h *handlers) handleProviders(w http.ResponseWriter, r *http.Request) {
	status := h.supervisor.Status()
	writeJSON(w, http.StatusOK, providersResponse{
		Mode:              string(status.Mode),
		ActiveTransport:   status.ActiveTransport,
		Symbols:           status.Symbols,
		PollIntervalSecs:  status.PollIntervalSecs,
		FallbackTriggered: status.FallbackTriggered,
	})
}
