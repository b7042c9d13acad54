package inspect_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leapstack-labs/schemais/internal/testutil"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/leapstack-labs/schemais/pkg/schemacache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `ActiveRecord::Schema.define(version: 2019_07_14_140223) do
  create_table "comments", force: :cascade do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
  end
end
`

const models = `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
  end
end

class Post < ApplicationRecord
end

class Admin
end
`

const fixedModels = `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
  end
end

class Post < ApplicationRecord
end

class Admin
end
`

const inSync = `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
  end
end
`

func project(t *testing.T, files map[string]string) (string, *inspect.Inspector) {
	t.Helper()
	dir := t.TempDir()
	all := map[string]string{"db/schema.rb": schema}
	for k, v := range files {
		all[k] = v
	}
	testutil.WriteFiles(t, dir, all)

	logger := testutil.NewTestLogger(t)
	insp := inspect.New(schemacache.New(schemacache.WithLogger(logger)), inspect.Config{
		SchemaPath: filepath.Join(dir, "db/schema.rb"),
	}, logger)
	return dir, insp
}

func ruleIDs(diags []lint.Diagnostic) []string {
	ids := make([]string, len(diags))
	for i, d := range diags {
		ids[i] = d.RuleID
	}
	return ids
}

func TestInspectSource(t *testing.T) {
	_, insp := project(t, nil)

	res, err := insp.InspectSource("app/models/comment.rb", models)
	require.NoError(t, err)

	assert.Equal(t, []string{"Comment", "Post"}, res.Models)
	assert.Equal(t, []string{"SI03", "SI03", "SI01"}, ruleIDs(res.Diagnostics))
	assert.Equal(t, `Column "user_id" definition is missing`, res.Diagnostics[0].Message)
	assert.Equal(t, `Column "article_id" definition is missing`, res.Diagnostics[1].Message)
	assert.Equal(t, "Post", res.Diagnostics[2].Model)
	assert.Equal(t, 7, res.Diagnostics[2].Location.Span.Start.Line)
	assert.Equal(t, "app/models/comment.rb", res.Diagnostics[2].Location.File)
	assert.False(t, res.Diagnostics[2].Fixable())

	fixed, changed, err := res.Fixed()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, fixedModels, fixed)

	again, err := insp.InspectSource("app/models/comment.rb", fixed)
	require.NoError(t, err)
	assert.Equal(t, []string{"SI01"}, ruleIDs(again.Diagnostics))
}

func TestInspectSource_ParseErrors(t *testing.T) {
	_, insp := project(t, nil)

	res, err := insp.InspectSource("broken.rb", "class Comment < ApplicationRecord\n  def x\n")
	require.NoError(t, err)
	require.NotEmpty(t, res.ParseErrors)
	assert.Equal(t, []string{"SI01"}, ruleIDs(res.Diagnostics))

	out, changed, err := res.Fixed()
	require.ErrorIs(t, err, inspect.ErrParseErrors)
	assert.False(t, changed)
	assert.Equal(t, res.Source, out)
}

func TestInspectSource_DisabledRule(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"db/schema.rb": schema})
	insp := inspect.New(nil, inspect.Config{
		SchemaPath: filepath.Join(dir, "db/schema.rb"),
		Lint:       lint.NewConfig().Disable("SI03"),
	}, nil)

	res, err := insp.InspectSource("m.rb", models)
	require.NoError(t, err)
	assert.Equal(t, []string{"SI01"}, ruleIDs(res.Diagnostics))
}

func TestInspectFiles(t *testing.T) {
	dir, insp := project(t, map[string]string{
		"app/models/a.rb": models,
		"app/models/b.rb": inSync,
		"app/models/c.rb": inSync,
	})
	paths := []string{
		filepath.Join(dir, "app/models/c.rb"),
		filepath.Join(dir, "app/models/a.rb"),
		filepath.Join(dir, "app/models/b.rb"),
	}

	results, err := insp.InspectFiles(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}
	assert.Empty(t, results[0].Diagnostics)
	assert.Len(t, results[1].Diagnostics, 3)

	sum := inspect.Summarize(results)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 4, sum.Models)
	assert.Equal(t, 3, sum.Total())
	assert.Equal(t, 2, sum.Fixable)
	assert.False(t, sum.HasErrors())
}

func TestInspectFiles_MissingFile(t *testing.T) {
	dir, insp := project(t, map[string]string{"app/models/b.rb": inSync})

	results, err := insp.InspectFiles(context.Background(), []string{
		filepath.Join(dir, "app/models/b.rb"),
		filepath.Join(dir, "app/models/gone.rb"),
	}, 4)
	require.Error(t, err)
	require.NotNil(t, results[0])
	assert.Nil(t, results[1])
}

func TestInspectFiles_Cancelled(t *testing.T) {
	dir, insp := project(t, map[string]string{"app/models/b.rb": inSync})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := insp.InspectFiles(ctx, []string{filepath.Join(dir, "app/models/b.rb")}, 1)
	require.ErrorIs(t, err, context.Canceled)
}

type memoryResults struct {
	mu    sync.Mutex
	saved map[inspect.CacheKey][]lint.Diagnostic
	hits  int
}

func (m *memoryResults) Lookup(_ context.Context, key inspect.CacheKey) ([]lint.Diagnostic, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	diags, ok := m.saved[key]
	if ok {
		m.hits++
	}
	return diags, ok, nil
}

func (m *memoryResults) Save(_ context.Context, key inspect.CacheKey, diags []lint.Diagnostic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[inspect.CacheKey][]lint.Diagnostic{}
	}
	m.saved[key] = diags
	return nil
}

func TestInspectFile_ResultCache(t *testing.T) {
	dir, insp := project(t, map[string]string{"app/models/a.rb": models})
	store := &memoryResults{}
	insp.WithResultCache(store)
	path := filepath.Join(dir, "app/models/a.rb")
	ctx := context.Background()

	first, err := insp.InspectFile(ctx, path)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := insp.InspectFile(ctx, path)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	assert.Equal(t, 1, store.hits)

	require.NoError(t, os.WriteFile(path, []byte(inSync), 0o644))
	third, err := insp.InspectFile(ctx, path)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Empty(t, third.Diagnostics)
}

func TestRefreshSchema(t *testing.T) {
	dir, insp := project(t, nil)
	schemaPath := filepath.Join(dir, "db/schema.rb")
	post := "class Post < ApplicationRecord\nend\n"

	res, err := insp.InspectSource("post.rb", post)
	require.NoError(t, err)
	assert.Equal(t, []string{"SI01"}, ruleIDs(res.Diagnostics))

	assert.False(t, insp.RefreshSchema())

	withPosts := schema[:len(schema)-len("end\n")] +
		"  create_table \"posts\", force: :cascade do |t|\n    t.string \"title\"\n  end\nend\n"
	require.NoError(t, os.WriteFile(schemaPath, []byte(withPosts), 0o644))
	before := insp.SchemaFingerprint()
	assert.True(t, insp.RefreshSchema())
	assert.NotEqual(t, before, insp.SchemaFingerprint())

	res, err = insp.InspectSource("post.rb", post)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "The schema is not specified in the model (use the_schema_is statement)", res.Diagnostics[0].Message)
}

func TestConfigHash(t *testing.T) {
	a := inspect.Config{SchemaPath: "db/schema.rb"}
	b := inspect.Config{SchemaPath: "db/schema.rb", TablePrefix: "app_"}
	assert.NotEmpty(t, a.Hash())
	assert.Equal(t, a.Hash(), inspect.Config{SchemaPath: "db/schema.rb"}.Hash())
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestDiscover(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"app/models/user.rb":              "",
		"app/models/admin/role.rb":        "",
		"app/models/concerns/taggable.rb": "",
		"app/models/README.md":            "",
		"app/models/.cache/x.rb":          "",
	})
	models := filepath.Join(dir, "app/models")

	files, err := inspect.Discover([]string{models}, []string{"concerns/"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(models, "admin/role.rb"),
		filepath.Join(models, "user.rb"),
	}, files)

	files, err = inspect.Discover([]string{models, filepath.Join(models, "user.rb")}, []string{"role.rb"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(models, "concerns/taggable.rb"),
		filepath.Join(models, "user.rb"),
	}, files)

	_, err = inspect.Discover([]string{filepath.Join(dir, "missing")}, nil)
	require.Error(t, err)
}
