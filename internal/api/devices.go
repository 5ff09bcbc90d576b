package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - q: substring match on device name
//   - type: filter by device type (light, lock, etc.)
//   - protocol: filter by protocol (wifi, zigbee, etc.)
//   - capability: filter by capability (power, brightness, etc.)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var devices []device.Device
	if q := query.Get("q"); q != "" {
		devices = s.orch.FindDevices(q)
	} else {
		devices = s.orch.GetDevices()
	}

	if t := query.Get("type"); t != "" {
		devices = filterDevices(devices, func(d device.Device) bool {
			return d.Type == device.DeviceType(t)
		})
	}
	if p := query.Get("protocol"); p != "" {
		devices = filterDevices(devices, func(d device.Device) bool {
			return d.Protocol == device.Protocol(p)
		})
	}
	if c := query.Get("capability"); c != "" {
		devices = filterDevices(devices, func(d device.Device) bool {
			return d.HasCapability(device.Capability(c))
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// filterDevices returns the devices matching the predicate.
func filterDevices(devices []device.Device, keep func(device.Device) bool) []device.Device {
	out := devices[:0:0]
	for _, d := range devices {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, ok := s.orch.GetDevice(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device from the registry.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orch.RemoveDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceStats returns device registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.GetDeviceStats())
}

// handleGetDeviceState returns the last recorded state of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := s.orch.GetDevice(id); !ok {
		writeNotFound(w, "device not found")
		return
	}

	state, ok := s.orch.GetDeviceState(id)
	if !ok {
		writeNotFound(w, "no state recorded for device")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleRefreshDeviceState queries the device's live state through its
// adapter and returns the refreshed snapshot.
func (s *Server) handleRefreshDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	state, err := s.orch.QueryState(r.Context(), id)
	if err != nil {
		writeOrchestratorError(w, err, "failed to query device state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleDeviceCommand executes a typed command against a device.
// The body is the tagged command envelope: {"type": "...", "payload": {...}}.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
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

	result := s.orch.ExecuteCommand(r.Context(), id, cmd)
	writeCommandResult(w, result)
}

// ControlRequest sets a single property to a value.
type ControlRequest struct {
	Property string       `json:"property"`
	Value    device.Value `json:"value"`
}

// handleControlDevice sets one device property by name, mapping it to
// the matching typed command.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Property == "" {
		writeBadRequest(w, "property field is required")
		return
	}

	result := s.orch.ControlDevice(r.Context(), id, req.Property, req.Value)
	writeCommandResult(w, result)
}

// handleConnectDevice establishes an adapter session with a device.
func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orch.Connect(r.Context(), id); err != nil {
		writeOrchestratorError(w, err, "failed to connect device")
		return
	}

	d, _ := s.orch.GetDevice(id)
	writeJSON(w, http.StatusOK, d)
}

// handleDisconnectDevice tears down a device's adapter session.
func (s *Server) handleDisconnectDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orch.Disconnect(r.Context(), id); err != nil {
		writeOrchestratorError(w, err, "failed to disconnect device")
		return
	}

	d, _ := s.orch.GetDevice(id)
	writeJSON(w, http.StatusOK, d)
}
