package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store and Engine.
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

// Store holds automation rules with an in-memory cache and optional
// write-through persistence. A nil Repository keeps the store purely
// volatile.
//
// All public methods are thread-safe.
type Store struct {
	repo   Repository // May be nil (no persistence)
	logger Logger

	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewStore creates a rule store.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		logger: noopLogger{},
		rules:  make(map[string]*Rule),
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

	rules, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = make(map[string]*Rule, len(rules))
	for i := range rules {
		r := rules[i]
		s.rules[r.ID] = r.DeepCopy()
	}

	s.logger.Info("rule store loaded", "count", len(rules))
	return nil
}

// Create validates and stores a new rule, generating an ID when absent.
// The stored copy is returned.
func (s *Store) Create(ctx context.Context, r *Rule) (*Rule, error) {
	if r.ID == "" {
		r.ID = GenerateID()
	}
	if err := ValidateRule(r); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stored := r.DeepCopy()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.mu.Lock()
	s.rules[stored.ID] = stored
	result := stored.DeepCopy()
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("persisting rule %s: %w", result.ID, err)
		}
	}

	s.logger.Info("rule created", "id", result.ID, "name", result.Name)
	return result, nil
}

// Update validates and replaces an existing rule.
// Returns ErrRuleNotFound for unknown IDs.
func (s *Store) Update(ctx context.Context, r *Rule) (*Rule, error) {
	if err := ValidateRule(r); err != nil {
		return nil, err
	}

	s.mu.Lock()
	existing, ok := s.rules[r.ID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrRuleNotFound
	}

	stored := r.DeepCopy()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	s.rules[stored.ID] = stored
	result := stored.DeepCopy()
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("persisting rule %s: %w", result.ID, err)
		}
	}

	s.logger.Info("rule updated", "id", result.ID, "name", result.Name)
	return result, nil
}

// Delete removes a rule.
// Returns ErrRuleNotFound for unknown IDs.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.rules[id]; !ok {
		s.mu.Unlock()
		return ErrRuleNotFound
	}
	delete(s.rules, id)
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting rule %s: %w", id, err)
		}
	}

	s.logger.Info("rule deleted", "id", id)
	return nil
}

// Get retrieves a rule by ID. The second return value reports whether
// the rule exists.
func (s *Store) Get(id string) (*Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, false
	}
	return r.DeepCopy(), true
}

// List returns all rules sorted by name.
func (s *Store) List() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, *r.DeepCopy())
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}

// Enabled returns all enabled rules.
func (s *Store) Enabled() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rules []Rule
	for _, r := range s.rules {
		if r.Enabled {
			rules = append(rules, *r.DeepCopy())
		}
	}
	return rules
}

// Count returns the number of stored rules.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}
