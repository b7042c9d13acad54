package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

var _ inspect.ResultCache = (*Store)(nil)

// Lookup returns the diagnostics stored for key.Path when the content hash,
// schema fingerprint and config hash all match.
func (s *Store) Lookup(ctx context.Context, key inspect.CacheKey) ([]lint.Diagnostic, bool, error) {
	if s.db == nil {
		return nil, false, ErrNotOpen
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT diagnostics_json FROM file_results
		 WHERE path = ? AND content_hash = ? AND schema_fingerprint = ? AND config_hash = ?`,
		key.Path, key.ContentHash, key.SchemaFingerprint, key.ConfigHash,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up %s: %w", key.Path, err)
	}

	var diags []lint.Diagnostic
	if err := json.Unmarshal([]byte(payload), &diags); err != nil {
		return nil, false, fmt.Errorf("failed to decode stored diagnostics for %s: %w", key.Path, err)
	}
	return diags, true, nil
}

// Save stores the diagnostics for key.Path, replacing any previous result.
func (s *Store) Save(ctx context.Context, key inspect.CacheKey, diags []lint.Diagnostic) error {
	if s.db == nil {
		return ErrNotOpen
	}

	if diags == nil {
		diags = []lint.Diagnostic{}
	}
	payload, err := json.Marshal(diags)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics for %s: %w", key.Path, err)
	}

	var runID sql.NullString
	if s.runID != "" {
		runID = sql.NullString{String: s.runID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO file_results
		   (path, content_hash, schema_fingerprint, config_hash, diagnostics_json, run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   schema_fingerprint = excluded.schema_fingerprint,
		   config_hash = excluded.config_hash,
		   diagnostics_json = excluded.diagnostics_json,
		   run_id = excluded.run_id,
		   updated_at = excluded.updated_at`,
		key.Path, key.ContentHash, key.SchemaFingerprint, key.ConfigHash, string(payload), runID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", key.Path, err)
	}
	return nil
}

// Forget drops the stored result for path.
func (s *Store) Forget(ctx context.Context, path string) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_results WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to forget %s: %w", path, err)
	}
	return nil
}

// Clear drops every stored result and run.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_results`); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}
