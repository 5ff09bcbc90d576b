package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// Save inserts a device or replaces an existing row with the same ID.
	Save(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateConnectionState updates only the connection fields of a device.
	// Returns ErrDeviceNotFound if the device does not exist.
	UpdateConnectionState(ctx context.Context, id string, cs ConnectionState, lastConnected *time.Time) error

	// SaveState replaces the stored property snapshot of a device.
	// This is optimised for frequent state changes from protocol bridges.
	// Returns ErrDeviceNotFound if the device does not exist.
	SaveState(ctx context.Context, id string, props Properties, ts time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, manufacturer, model, firmware_version, type, protocol,
	capabilities, room, connection_state, last_connected, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// Save inserts a device or replaces an existing row with the same ID.
// The stored state snapshot is preserved on conflict; SaveState owns it.
func (r *SQLiteRepository) Save(ctx context.Context, device *Device) error {
	capsJSON, err := json.Marshal(device.Capabilities)
	if err != nil {
		return fmt.Errorf("marshalling capabilities: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	if device.UpdatedAt.IsZero() {
		device.UpdatedAt = now
	}

	query := `
		INSERT INTO devices (
			id, name, manufacturer, model, firmware_version, type, protocol,
			capabilities, room, connection_state, last_connected, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			firmware_version = excluded.firmware_version,
			type = excluded.type,
			protocol = excluded.protocol,
			capabilities = excluded.capabilities,
			room = excluded.room,
			connection_state = excluded.connection_state,
			last_connected = excluded.last_connected,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		device.ID,
		device.Name,
		device.Manufacturer,
		device.Model,
		device.FirmwareVersion,
		string(device.Type),
		string(device.Protocol),
		string(capsJSON),
		device.Room,
		string(device.ConnectionState),
		nullableUnixMilli(device.LastConnected),
		device.CreatedAt.UnixMilli(),
		device.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving device: %w", err)
	}

	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// UpdateConnectionState updates only the connection fields of a device.
func (r *SQLiteRepository) UpdateConnectionState(ctx context.Context, id string, cs ConnectionState, lastConnected *time.Time) error {
	now := time.Now().UTC()
	query := `
		UPDATE devices
		SET connection_state = ?, last_connected = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(cs),
		nullableUnixMilli(lastConnected),
		now.UnixMilli(),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating connection state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// SaveState replaces the stored property snapshot of a device.
func (r *SQLiteRepository) SaveState(ctx context.Context, id string, props Properties, ts time.Time) error {
	stateJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	query := `
		UPDATE devices
		SET state = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(stateJSON),
		ts.UTC().UnixMilli(),
		id,
	)
	if err != nil {
		return fmt.Errorf("saving device state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row or rows result into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var deviceType, protocol, connectionState string
	var capsJSON string
	var lastConnected sql.NullInt64
	var createdAt, updatedAt int64

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&d.Manufacturer,
		&d.Model,
		&d.FirmwareVersion,
		&deviceType,
		&protocol,
		&capsJSON,
		&d.Room,
		&connectionState,
		&lastConnected,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = DeviceType(deviceType)
	d.Protocol = Protocol(protocol)
	d.ConnectionState = ConnectionState(connectionState)

	if lastConnected.Valid {
		t := time.UnixMilli(lastConnected.Int64).UTC()
		d.LastConnected = &t
	}
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	d.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if err := json.Unmarshal([]byte(capsJSON), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
	}

	return &d, nil
}

// nullableUnixMilli returns a sql.NullInt64 for optional time pointers.
func nullableUnixMilli(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixMilli(), Valid: true}
}
