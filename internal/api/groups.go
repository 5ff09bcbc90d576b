package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// handleListGroups returns all device groups.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.orch.GetDeviceGroups()
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
}

// CreateGroupRequest names a group and lists its member devices.
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	DeviceIDs []string `json:"device_ids"`
}

// handleCreateGroup creates a device group. Every member must be a
// known device.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	g, err := s.orch.CreateDeviceGroup(req.Name, req.DeviceIDs)
	if err != nil {
		writeOrchestratorError(w, err, "failed to create group")
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

// handleGetGroup returns a single group by ID.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	g, ok := s.orch.GetDeviceGroup(id)
	if !ok {
		writeNotFound(w, "group not found")
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// handleDeleteGroup removes a group. Member devices are untouched.
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orch.RemoveDeviceGroup(id); err != nil {
		if errors.Is(err, device.ErrGroupNotFound) {
			writeNotFound(w, "group not found")
			return
		}
		writeInternalError(w, "failed to delete group")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGroupCommand fans a typed command out to every group member.
// The body is the tagged command envelope. Per-member failures are
// reported in the result, not as an HTTP error.
func (s *Server) handleGroupCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}

	cmd, err := device.UnmarshalCommand(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.orch.ControlDeviceGroup(r.Context(), id, cmd)
	if err != nil {
		writeOrchestratorError(w, err, "failed to execute group command")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
