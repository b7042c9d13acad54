package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/leapstack-labs/schemais/pkg/patch"
	"github.com/leapstack-labs/schemais/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleDiagnostics() []lint.Diagnostic {
	return []lint.Diagnostic{{
		RuleID:   "SI03",
		Severity: core.SeverityWarning,
		Message:  `Column "user_id" definition is missing`,
		Kind:     core.MissingColumn,
		Model:    "Comment",
		Location: token.Location{
			File: "app/models/comment.rb",
			Span: token.Span{
				Start: token.Position{Line: 2, Column: 3, Offset: 36},
				End:   token.Position{Line: 4, Column: 6, Offset: 90},
			},
		},
		Fixes: []lint.Fix{{
			Description: "Add column definition",
			Edits:       []patch.Edit{patch.InsertAt(60, "\n    t.integer \"user_id\"")},
		}},
	}}
}

func TestStore_OpenClose(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "cache.db")))

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestStore_NotOpen(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, _, err := store.Lookup(ctx, inspect.CacheKey{Path: "x.rb"})
	require.ErrorIs(t, err, ErrNotOpen)
	require.ErrorIs(t, store.Save(ctx, inspect.CacheKey{}, nil), ErrNotOpen)
	_, err = store.BeginRun("")
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = store.MigrationVersion()
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestStore_LookupSave(t *testing.T) {
	base := inspect.CacheKey{
		Path:              "app/models/comment.rb",
		ContentHash:       "c1",
		SchemaFingerprint: "s1",
		ConfigHash:        "k1",
	}

	tests := []struct {
		name   string
		mutate func(k *inspect.CacheKey)
		hit    bool
	}{
		{name: "all keys match", mutate: func(*inspect.CacheKey) {}, hit: true},
		{name: "content changed", mutate: func(k *inspect.CacheKey) { k.ContentHash = "c2" }},
		{name: "schema changed", mutate: func(k *inspect.CacheKey) { k.SchemaFingerprint = "s2" }},
		{name: "config changed", mutate: func(k *inspect.CacheKey) { k.ConfigHash = "k2" }},
		{name: "other file", mutate: func(k *inspect.CacheKey) { k.Path = "app/models/post.rb" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, base, sampleDiagnostics()))

			key := base
			tt.mutate(&key)
			diags, ok, err := store.Lookup(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, tt.hit, ok)
			if tt.hit {
				assert.Equal(t, sampleDiagnostics(), diags)
			} else {
				assert.Nil(t, diags)
			}
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := inspect.CacheKey{Path: "a.rb", ContentHash: "c1"}

	require.NoError(t, store.Save(ctx, key, sampleDiagnostics()))
	key.ContentHash = "c2"
	require.NoError(t, store.Save(ctx, key, nil))

	diags, ok, err := store.Lookup(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, diags)

	key.ContentHash = "c1"
	_, ok, err = store.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Forget(ctx, "a.rb"))
	key.ContentHash = "c2"
	_, ok, err = store.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Runs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.BeginRun("fp")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	require.NoError(t, store.Save(ctx, inspect.CacheKey{Path: "a.rb"}, sampleDiagnostics()))
	require.NoError(t, store.CompleteRun(run.ID, 1, 1))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "fp", got.SchemaFingerprint)
	assert.Equal(t, 1, got.Files)
	assert.Equal(t, 1, got.Diagnostics)
	assert.NotNil(t, got.CompletedAt)

	var runID string
	require.NoError(t, store.db.QueryRow(`SELECT run_id FROM file_results WHERE path = 'a.rb'`).Scan(&runID))
	assert.Equal(t, run.ID, runID)

	require.Error(t, store.CompleteRun("missing", 0, 0))
	_, err = store.GetRun("missing")
	require.Error(t, err)

	require.NoError(t, store.Clear(ctx))
	_, err = store.GetRun(run.ID)
	require.Error(t, err)
}
