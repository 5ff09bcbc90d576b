package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for rule persistence operations.
type Repository interface {
	// GetByID retrieves a rule by ID.
	// Returns ErrRuleNotFound if the rule does not exist.
	GetByID(ctx context.Context, id string) (*Rule, error)

	// List retrieves all rules.
	List(ctx context.Context) ([]Rule, error)

	// Save inserts a rule or replaces an existing row with the same ID.
	Save(ctx context.Context, rule *Rule) error

	// Delete removes a rule by ID.
	// Returns ErrRuleNotFound if the rule does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed rule repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a rule by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	query := `SELECT id, name, enabled, triggers, actions, created_at, updated_at
		FROM rules WHERE id = ?`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("querying rule by id: %w", err)
	}
	return rule, nil
}

// List retrieves all rules.
func (r *SQLiteRepository) List(ctx context.Context) ([]Rule, error) {
	query := `SELECT id, name, enabled, triggers, actions, created_at, updated_at
		FROM rules ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}

	return rules, nil
}

// Save inserts a rule or replaces an existing row with the same ID.
func (r *SQLiteRepository) Save(ctx context.Context, rule *Rule) error {
	triggersJSON, err := json.Marshal(rule.Triggers)
	if err != nil {
		return fmt.Errorf("marshalling triggers: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	query := `
		INSERT INTO rules (id, name, enabled, triggers, actions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			enabled = excluded.enabled,
			triggers = excluded.triggers,
			actions = excluded.actions,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		boolToInt(rule.Enabled),
		string(triggersJSON),
		string(actionsJSON),
		rule.CreatedAt.UnixMilli(),
		rule.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}

	return nil
}

// Delete removes a rule by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}

	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRule scans a row or rows result into a Rule.
func scanRule(scanner rowScanner) (*Rule, error) {
	var rule Rule
	var enabled int
	var triggersJSON, actionsJSON string
	var createdAt, updatedAt int64

	err := scanner.Scan(
		&rule.ID,
		&rule.Name,
		&enabled,
		&triggersJSON,
		&actionsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled != 0
	rule.CreatedAt = time.UnixMilli(createdAt).UTC()
	rule.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if err := json.Unmarshal([]byte(triggersJSON), &rule.Triggers); err != nil {
		return nil, fmt.Errorf("unmarshalling triggers: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &rule.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}

	return &rule, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
