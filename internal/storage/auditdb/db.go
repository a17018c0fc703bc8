// Package auditdb records every privilege-escalation attempt the tool
// makes. Escalation must stay auditable after the fact, so attempts go
// into a small SQLite database under the data directory rather than the
// rotating debug log.
package auditdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding the elevation audit trail.
type DB struct {
	*sql.DB
}

// New opens (or creates) the audit database and runs migrations.
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	db := &DB{DB: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func (d *DB) migrate() error {
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS elevations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			method TEXT NOT NULL,
			description TEXT NOT NULL,
			command TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			outcome TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating elevations table: %w", err)
	}
	return nil
}

// Elevation is one recorded escalation attempt.
type Elevation struct {
	ID          int64
	StartedAt   time.Time
	Duration    time.Duration
	Method      string // direct, pkexec, sudo, none
	Description string
	Command     string
	ExitCode    int
	Outcome     string // ok, denied, cancelled, error
}

// Record appends an elevation attempt to the audit trail.
func (d *DB) Record(e Elevation) error {
	_, err := d.Exec(`
		INSERT INTO elevations (started_at, duration_ms, method, description, command, exit_code, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.StartedAt.UTC(), e.Duration.Milliseconds(), e.Method, e.Description, e.Command, e.ExitCode, e.Outcome)
	if err != nil {
		return fmt.Errorf("recording elevation: %w", err)
	}
	return nil
}

// Recent returns the most recent elevation attempts, newest first.
func (d *DB) Recent(limit int) ([]Elevation, error) {
	rows, err := d.Query(`
		SELECT id, started_at, duration_ms, method, description, command, exit_code, outcome
		FROM elevations
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying elevations: %w", err)
	}
	defer rows.Close()

	var out []Elevation
	for rows.Next() {
		var e Elevation
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.StartedAt, &durationMS, &e.Method, &e.Description, &e.Command, &e.ExitCode, &e.Outcome); err != nil {
			return nil, fmt.Errorf("scanning elevation: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
