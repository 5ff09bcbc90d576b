package scene

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// Repository defines the interface for scene persistence operations.
type Repository interface {
	// GetByID retrieves a scene by ID.
	// Returns ErrSceneNotFound if the scene does not exist.
	GetByID(ctx context.Context, id string) (*Scene, error)

	// List retrieves all scenes.
	List(ctx context.Context) ([]Scene, error)

	// Save inserts a scene or replaces an existing row with the same ID.
	Save(ctx context.Context, scene *Scene) error

	// Delete removes a scene by ID.
	// Returns ErrSceneNotFound if the scene does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed scene repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sceneColumns = `id, name, device_states, icon, favorite, last_executed, created_at, updated_at`

// GetByID retrieves a scene by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE id = ?`

	scene, err := scanScene(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene by id: %w", err)
	}
	return scene, nil
}

// List retrieves all scenes.
func (r *SQLiteRepository) List(ctx context.Context) ([]Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scene: %w", err)
		}
		scenes = append(scenes, *scene)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenes: %w", err)
	}

	return scenes, nil
}

// Save inserts a scene or replaces an existing row with the same ID.
func (r *SQLiteRepository) Save(ctx context.Context, scene *Scene) error {
	statesJSON, err := json.Marshal(scene.DeviceStates)
	if err != nil {
		return fmt.Errorf("marshalling device states: %w", err)
	}

	query := `
		INSERT INTO scenes (id, name, device_states, icon, favorite, last_executed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			device_states = excluded.device_states,
			icon = excluded.icon,
			favorite = excluded.favorite,
			last_executed = excluded.last_executed,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		scene.ID,
		scene.Name,
		string(statesJSON),
		scene.Icon,
		boolToInt(scene.Favorite),
		nullableUnixMilli(scene.LastExecuted),
		scene.CreatedAt.UnixMilli(),
		scene.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving scene: %w", err)
	}

	return nil
}

// Delete removes a scene by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scenes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting scene: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSceneNotFound
	}

	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanScene scans a row or rows result into a Scene.
func scanScene(scanner rowScanner) (*Scene, error) {
	var scene Scene
	var statesJSON string
	var favorite int
	var lastExecuted sql.NullInt64
	var createdAt, updatedAt int64

	err := scanner.Scan(
		&scene.ID,
		&scene.Name,
		&statesJSON,
		&scene.Icon,
		&favorite,
		&lastExecuted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	scene.Favorite = favorite != 0
	scene.CreatedAt = time.UnixMilli(createdAt).UTC()
	scene.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if lastExecuted.Valid {
		t := time.UnixMilli(lastExecuted.Int64).UTC()
		scene.LastExecuted = &t
	}

	if err := json.Unmarshal([]byte(statesJSON), &scene.DeviceStates); err != nil {
		return nil, fmt.Errorf("unmarshalling device states: %w", err)
	}
	if scene.DeviceStates == nil {
		scene.DeviceStates = make(map[string]device.Properties)
	}

	return &scene, nil
}

// nullableUnixMilli converts an optional time to a driver value.
func nullableUnixMilli(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
