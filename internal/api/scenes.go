package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthgrid/hearth-core/internal/scene"
)

// handleListScenes returns all scenes, name-sorted.
//
// Query parameters:
//   - favorite: "true" returns only favourited scenes
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes := s.orch.GetScenes()

	if r.URL.Query().Get("favorite") == "true" {
		kept := scenes[:0:0]
		for _, sc := range scenes {
			if sc.Favorite {
				kept = append(kept, sc)
			}
		}
		scenes = kept
	}

	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}

// handleGetScene returns a single scene by ID.
func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sc, ok := s.orch.GetScene(id)
	if !ok {
		writeNotFound(w, "scene not found")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handleCreateScene creates a new scene.
func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var sc scene.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	created, err := s.orch.CreateScene(r.Context(), &sc)
	if err != nil {
		writeOrchestratorError(w, err, "failed to create scene")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateScene replaces a scene's definition.
func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var sc scene.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	sc.ID = id

	updated, err := s.orch.UpdateScene(r.Context(), &sc)
	if err != nil {
		writeOrchestratorError(w, err, "failed to update scene")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteScene removes a scene.
func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orch.DeleteScene(r.Context(), id); err != nil {
		writeOrchestratorError(w, err, "failed to delete scene")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleActivateScene applies a scene's device states. Partial failure
// is reported in the result, not as an HTTP error; already-applied
// devices are never rolled back.
func (s *Server) handleActivateScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.orch.ActivateScene(r.Context(), id)
	if err != nil {
		writeOrchestratorError(w, err, "failed to activate scene")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
