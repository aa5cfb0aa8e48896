// Package weardb persists decode sessions and their per-window activity
// summaries to SQLite, with schema-versioned migrations embedded in the
// binary.
package weardb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wearlab-data/motion.report/internal/monitoring"
	"github.com/wearlab-data/motion.report/internal/wearable/summary"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies any pending
// migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if the schema is already current.
func (db *DB) MigrateUp() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	// Note: we don't close m because that would close the underlying DB
	// connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state.
// Returns 0, false, nil when no migrations have been applied yet.
func (db *DB) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// Session is one decoded file: its source, device metadata and the
// best-effort decode counters.
type Session struct {
	ID        string
	Format    string
	Path      string
	DeviceID  string
	Frequency float64
	Samples   int64
	BadUnits  int64
	NDays     int64
	DecodedAt time.Time
}

// InsertSession stores a decode session, assigning a fresh id when the
// caller did not set one. Returns the session id.
func (db *DB) InsertSession(s *Session) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.DecodedAt.IsZero() {
		s.DecodedAt = time.Now().UTC()
	}
	_, err := db.Exec(`
		INSERT INTO sessions (session_id, format, path, device_id, frequency, samples, bad_units, n_days, decoded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Format, s.Path, s.DeviceID, s.Frequency, s.Samples, s.BadUnits, s.NDays, s.DecodedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return s.ID, nil
}

// InsertWindowSummaries stores the per-window statistics for a session.
func (db *DB) InsertWindowSummaries(sessionID string, rows []summary.WindowSummary) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO window_summaries (session_id, pair, start_idx, stop_idx, n, mean_g, std_g, p95_g)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(sessionID, r.Pair, r.Start, r.Stop, r.N, r.Mean, r.Std, r.P95); err != nil {
			return fmt.Errorf("failed to insert window summary %d: %w", r.Pair, err)
		}
	}
	return tx.Commit()
}

// Sessions lists stored sessions, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT session_id, format, path, device_id, frequency, samples, bad_units, n_days, decoded_at
		FROM sessions ORDER BY decoded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var decodedAt string
		if err := rows.Scan(&s.ID, &s.Format, &s.Path, &s.DeviceID, &s.Frequency,
			&s.Samples, &s.BadUnits, &s.NDays, &decodedAt); err != nil {
			return nil, err
		}
		s.DecodedAt, _ = time.Parse(time.RFC3339, decodedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// WindowSummaries returns the stored statistics for one session in pair
// order.
func (db *DB) WindowSummaries(sessionID string) ([]summary.WindowSummary, error) {
	rows, err := db.Query(`
		SELECT pair, start_idx, stop_idx, n, mean_g, std_g, p95_g
		FROM window_summaries WHERE session_id = ? ORDER BY pair`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []summary.WindowSummary
	for rows.Next() {
		var r summary.WindowSummary
		if err := rows.Scan(&r.Pair, &r.Start, &r.Stop, &r.N, &r.Mean, &r.Std, &r.P95); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
