package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// DiscoverRequest starts a discovery run.
type DiscoverRequest struct {
	// Protocols restricts the run; empty means every registered adapter.
	Protocols []string `json:"protocols,omitempty"`

	// TimeoutSeconds bounds each adapter's scan. Zero uses the
	// configured default.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// handleDiscover runs a discovery sweep across the requested protocols
// and returns everything found. The call blocks for the duration of
// the sweep; per-device announcements also arrive on the event stream.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	protocols := make([]device.Protocol, 0, len(req.Protocols))
	for _, p := range req.Protocols {
		protocols = append(protocols, device.Protocol(p))
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second

	devices, err := s.orch.Discover(r.Context(), protocols, timeout)
	if err != nil {
		writeOrchestratorError(w, err, "discovery failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}
