package server

import (
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// healthResponse is the documented shape plus the process-status enrichment the
// teacher's own lightweight status endpoint reports.
type healthResponse struct {
	OK            bool    `json:"ok"`
	Ts            int64   `json:"ts"`
	Provider      string  `json:"provider"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	MemoryRSSMB   float64 `json:"memory_rss_mb,omitempty"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		OK:            true,
		Ts:            time.Now().Unix(),
		Provider:      "binance",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			resp.MemoryRSSMB = float64(mem.RSS) / (1024 * 1024)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
