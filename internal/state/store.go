// Package state persists inspection results between runs in SQLite.
//
// A stored result is keyed by file path and is only returned while the
// file content, the schema fingerprint and the configuration hash all
// match what was recorded.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultPath is the result cache location relative to the project root.
const DefaultPath = ".schemais/cache.db"

// ErrNotOpen is returned by every operation on a store that is not open.
var ErrNotOpen = errors.New("database not opened")

// Store is the SQLite-backed result cache.
type Store struct {
	db    *sql.DB
	path  string
	runID string
}

// NewStore creates a store. Call Open before use.
func NewStore() *Store {
	return &Store{}
}

// Open opens the database at path and applies pending migrations.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Run is one recorded inspection run.
type Run struct {
	ID                string
	StartedAt         time.Time
	CompletedAt       *time.Time
	SchemaFingerprint string
	Files             int
	Diagnostics       int
}

// BeginRun records a new run. Results saved afterwards are attributed to it.
func (s *Store) BeginRun(schemaFingerprint string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run := &Run{
		ID:                uuid.New().String(),
		StartedAt:         time.Now().UTC(),
		SchemaFingerprint: schemaFingerprint,
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, schema_fingerprint) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt, run.SchemaFingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	s.runID = run.ID
	return run, nil
}

// CompleteRun stamps a run with its totals.
func (s *Store) CompleteRun(id string, files, diagnostics int) error {
	if s.db == nil {
		return ErrNotOpen
	}

	result, err := s.db.Exec(
		`UPDATE runs SET completed_at = ?, files = ?, diagnostics = ? WHERE id = ?`,
		time.Now().UTC(), files, diagnostics, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run := &Run{}
	var completedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, started_at, completed_at, schema_fingerprint, files, diagnostics FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.StartedAt, &completedAt, &run.SchemaFingerprint, &run.Files, &run.Diagnostics)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}
