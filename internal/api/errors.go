package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hearthgrid/hearth-core/internal/automation"
	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/orchestrator"
	"github.com/hearthgrid/hearth-core/internal/scene"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeForbidden   = "forbidden"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeUnavailable = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeOrchestratorError maps orchestrator and domain errors to HTTP
// responses. Unrecognised errors become 500 with the fallback message.
func writeOrchestratorError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, device.ErrGroupNotFound),
		errors.Is(err, scene.ErrSceneNotFound),
		errors.Is(err, automation.ErrRuleNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, orchestrator.ErrNotIdle),
		errors.Is(err, orchestrator.ErrUnsupportedProtocol):
		writeConflict(w, err.Error())
	case errors.Is(err, orchestrator.ErrSystemDisabled),
		errors.Is(err, orchestrator.ErrNotInitialized),
		errors.Is(err, orchestrator.ErrShuttingDown),
		errors.Is(err, automation.ErrEngineNotRunning):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, orchestrator.ErrAdapterFailure):
		writeError(w, http.StatusBadGateway, ErrCodeUnavailable, err.Error())
	case errors.Is(err, device.ErrInvalidDevice),
		errors.Is(err, device.ErrInvalidState),
		errors.Is(err, device.ErrInvalidGroup),
		errors.Is(err, scene.ErrInvalidScene),
		errors.Is(err, scene.ErrInvalidName),
		errors.Is(err, automation.ErrInvalidRule),
		errors.Is(err, automation.ErrInvalidTrigger),
		errors.Is(err, automation.ErrInvalidAction):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, fallback)
	}
}

// writeCommandResult writes a command result, mapping its error code to
// the HTTP status. The result codes already follow HTTP semantics.
func writeCommandResult(w http.ResponseWriter, result device.CommandResult) {
	status := http.StatusOK
	if !result.Success {
		status = result.ErrorCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, result)
}
