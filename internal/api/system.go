package api

import (
	"net/http"
)

// SystemStatus reports the hub's current condition.
type SystemStatus struct {
	State       string `json:"state"`
	Version     string `json:"version"`
	DeviceCount int    `json:"device_count"`
	WSClients   int    `json:"ws_clients"`
}

// handleSystemStatus returns the orchestrator state and headline counts.
func (s *Server) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	status := SystemStatus{
		State:       s.orch.State().String(),
		Version:     s.version,
		DeviceCount: len(s.orch.GetDevices()),
	}
	if s.hub != nil {
		status.WSClients = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSystemInitialize brings a disabled hub back up.
func (s *Server) handleSystemInitialize(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Initialize(r.Context()); err != nil {
		writeOrchestratorError(w, err, "initialization failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.orch.State().String()})
}

// handleSystemShutdown disconnects all devices and disables the hub.
// The HTTP server itself stays up so the hub can be re-initialized.
func (s *Server) handleSystemShutdown(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Shutdown(r.Context()); err != nil {
		writeOrchestratorError(w, err, "shutdown failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.orch.State().String()})
}
