package scene

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store and Manager.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store holds scenes with an in-memory cache and optional write-through
// persistence. A nil Repository keeps the store purely volatile.
//
// All public methods are thread-safe.
type Store struct {
	repo   Repository // May be nil (no persistence)
	logger Logger

	mu     sync.RWMutex
	scenes map[string]*Scene
}

// NewStore creates a scene store.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		logger: noopLogger{},
		scenes: make(map[string]*Scene),
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load populates the cache from the repository.
// A no-op when the store has no repository.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	scenes, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scenes = make(map[string]*Scene, len(scenes))
	for i := range scenes {
		sc := scenes[i]
		s.scenes[sc.ID] = sc.DeepCopy()
	}

	s.logger.Info("scene store loaded", "count", len(scenes))
	return nil
}

// Create validates and stores a new scene, generating an ID when absent.
// The stored copy is returned.
func (s *Store) Create(ctx context.Context, sc *Scene) (*Scene, error) {
	if sc.ID == "" {
		sc.ID = GenerateID()
	}
	if err := ValidateScene(sc); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stored := sc.DeepCopy()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.LastExecuted = nil

	s.mu.Lock()
	s.scenes[stored.ID] = stored
	result := stored.DeepCopy()
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("persisting scene %s: %w", result.ID, err)
		}
	}

	s.logger.Info("scene created", "id", result.ID, "name", result.Name)
	return result, nil
}

// Update validates and replaces an existing scene. The creation
// timestamp and last execution time carry over from the stored scene.
// Returns ErrSceneNotFound for unknown IDs.
func (s *Store) Update(ctx context.Context, sc *Scene) (*Scene, error) {
	if err := ValidateScene(sc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	existing, ok := s.scenes[sc.ID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSceneNotFound
	}

	stored := sc.DeepCopy()
	stored.CreatedAt = existing.CreatedAt
	stored.LastExecuted = existing.LastExecuted
	stored.UpdatedAt = time.Now().UTC()
	s.scenes[stored.ID] = stored
	result := stored.DeepCopy()
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("persisting scene %s: %w", result.ID, err)
		}
	}

	s.logger.Info("scene updated", "id", result.ID, "name", result.Name)
	return result, nil
}

// Delete removes a scene.
// Returns ErrSceneNotFound for unknown IDs.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.scenes[id]; !ok {
		s.mu.Unlock()
		return ErrSceneNotFound
	}
	delete(s.scenes, id)
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting scene %s: %w", id, err)
		}
	}

	s.logger.Info("scene deleted", "id", id)
	return nil
}

// Get retrieves a scene by ID. The second return value reports whether
// the scene exists.
func (s *Store) Get(id string) (*Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenes[id]
	if !ok {
		return nil, false
	}
	return sc.DeepCopy(), true
}

// List returns all scenes sorted by name.
func (s *Store) List() []Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scenes := make([]Scene, 0, len(s.scenes))
	for _, sc := range s.scenes {
		scenes = append(scenes, *sc.DeepCopy())
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes
}

// Favorites returns all scenes marked as favorite, sorted by name.
func (s *Store) Favorites() []Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scenes []Scene
	for _, sc := range s.scenes {
		if sc.Favorite {
			scenes = append(scenes, *sc.DeepCopy())
		}
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes
}

// Count returns the number of stored scenes.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}

// markExecuted stamps the last execution time on a stored scene and
// persists the change. Called by the Manager after a fully successful
// activation.
func (s *Store) markExecuted(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	sc, ok := s.scenes[id]
	if !ok {
		s.mu.Unlock()
		return ErrSceneNotFound
	}
	t := at.UTC()
	sc.LastExecuted = &t
	result := sc.DeepCopy()
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, result); err != nil {
			return fmt.Errorf("persisting scene %s: %w", id, err)
		}
	}
	return nil
}
