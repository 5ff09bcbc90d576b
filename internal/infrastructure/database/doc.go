// Package database provides SQLite database connectivity for Hearth Core.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Idempotent schema bootstrapping at startup
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Bootstrap(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The schema is created with CREATE TABLE IF NOT EXISTS statements, so
// Bootstrap is safe to run on every startup. Schema changes must be
// additive (new nullable or defaulted columns).
package database
