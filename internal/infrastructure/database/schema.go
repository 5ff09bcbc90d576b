package database

import (
	"context"
	"fmt"
)

// schema is the full database schema, applied idempotently at startup.
//
// Structured fields (capabilities, state, triggers, actions, device targets)
// are stored as JSON text columns; the stores own their encoding.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		manufacturer     TEXT NOT NULL DEFAULT '',
		model            TEXT NOT NULL DEFAULT '',
		firmware_version TEXT NOT NULL DEFAULT '',
		type             TEXT NOT NULL,
		protocol         TEXT NOT NULL,
		capabilities     TEXT NOT NULL DEFAULT '[]',
		room             TEXT NOT NULL DEFAULT '',
		connection_state TEXT NOT NULL DEFAULT 'disconnected',
		last_connected   INTEGER,
		state            TEXT NOT NULL DEFAULT '{}',
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_type ON devices(type)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_protocol ON devices(protocol)`,

	`CREATE TABLE IF NOT EXISTS rules (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		enabled    INTEGER NOT NULL DEFAULT 1,
		triggers   TEXT NOT NULL DEFAULT '[]',
		actions    TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS scenes (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		device_states TEXT NOT NULL DEFAULT '{}',
		icon          TEXT NOT NULL DEFAULT '',
		favorite      INTEGER NOT NULL DEFAULT 0,
		last_executed INTEGER,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	)`,
}

// Bootstrap creates the schema if it does not already exist.
// It is safe to call on every startup.
func (db *DB) Bootstrap(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bootstrapping schema: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrapping schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bootstrapping schema: %w", err)
	}

	return nil
}
