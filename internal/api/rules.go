package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthgrid/hearth-core/internal/automation"
)

// handleListRules returns all automation rules, name-sorted.
//
// Query parameters:
//   - enabled: "true" or "false" filters by enabled flag
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules := s.orch.GetRules()

	if enabled := r.URL.Query().Get("enabled"); enabled != "" {
		want := enabled == "true"
		kept := rules[:0:0]
		for _, rule := range rules {
			if rule.Enabled == want {
				kept = append(kept, rule)
			}
		}
		rules = kept
	}

	writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "count": len(rules)})
}

// handleGetRule returns a single rule by ID.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, ok := s.orch.GetRule(id)
	if !ok {
		writeNotFound(w, "rule not found")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// handleCreateRule creates a new automation rule.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule automation.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	created, err := s.orch.CreateRule(r.Context(), &rule)
	if err != nil {
		writeOrchestratorError(w, err, "failed to create rule")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateRule replaces a rule's definition and resets its trigger
// edge state so the new conditions are evaluated fresh.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var rule automation.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	rule.ID = id

	updated, err := s.orch.UpdateRule(r.Context(), &rule)
	if err != nil {
		writeOrchestratorError(w, err, "failed to update rule")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteRule removes a rule.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orch.DeleteRule(r.Context(), id); err != nil {
		writeOrchestratorError(w, err, "failed to delete rule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleTriggerRule executes a rule's actions immediately, bypassing
// its triggers. Disabled rules can be triggered manually.
func (s *Server) handleTriggerRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.orch.TriggerRule(r.Context(), id)
	if err != nil {
		writeOrchestratorError(w, err, "failed to trigger rule")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
