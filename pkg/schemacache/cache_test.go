package schemacache_test

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leapstack-labs/schemais/internal/testutil"
	"github.com/leapstack-labs/schemais/pkg/schemacache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `ActiveRecord::Schema.define(version: 1) do
  create_table "users", force: :cascade do |t|
    t.string "email", null: false, comment: "login"
  end
end
`

func countingReader(files map[string]string, calls *atomic.Int32) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		calls.Add(1)
		src, ok := files[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(src), nil
	}
}

func TestCache_Memoizes(t *testing.T) {
	var calls atomic.Int32
	c := schemacache.New(
		schemacache.WithLogger(testutil.NewTestLogger(t)),
		schemacache.WithReadFile(countingReader(map[string]string{"db/schema.rb": schema}, &calls)),
	)

	first := c.Load("db/schema.rb", nil)
	second := c.Load("db/schema.rb", nil)
	require.Contains(t, first, "users")
	assert.Same(t, first["users"], second["users"])
	assert.Equal(t, int32(1), calls.Load())

	// excluded attributes are part of the key, in any order
	stripped := c.Load("db/schema.rb", []string{"comment", "null"})
	assert.Empty(t, stripped["users"].Columns[0].Attributes)
	c.Load("db/schema.rb", []string{"null", "comment"})
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestCache_SoftFailure(t *testing.T) {
	var calls atomic.Int32
	c := schemacache.New(schemacache.WithReadFile(countingReader(map[string]string{
		"broken.rb": "create_table \"x\" do |t|\n",
	}, &calls)))

	assert.Empty(t, c.Load("missing.rb", nil))
	assert.Nil(t, c.Table("missing.rb", nil, "users"))
	assert.Empty(t, c.Load("broken.rb", nil))

	// failures are cached too
	c.Load("missing.rb", nil)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_ConcurrentLoadComputesOnce(t *testing.T) {
	var calls atomic.Int32
	c := schemacache.New(schemacache.WithReadFile(countingReader(map[string]string{"s.rb": schema}, &calls)))

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, c.Table("s.rb", nil, "users"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_InvalidateAndReset(t *testing.T) {
	var calls atomic.Int32
	files := map[string]string{"a.rb": schema, "b.rb": schema}
	c := schemacache.New(schemacache.WithReadFile(countingReader(files, &calls)))

	c.Load("a.rb", nil)
	c.Load("a.rb", []string{"comment"})
	c.Load("b.rb", nil)
	require.Equal(t, 3, c.Len())

	c.Invalidate("a.rb")
	assert.Equal(t, 1, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())

	c.Load("a.rb", nil)
	assert.Equal(t, int32(4), calls.Load())
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.rb")
	require.NoError(t, os.WriteFile(path, []byte(schema), 0o644))

	fp := schemacache.Fingerprint(path)
	assert.Len(t, fp, 64)
	assert.Equal(t, schemacache.Sum([]byte(schema)), fp)

	require.NoError(t, os.WriteFile(path, []byte(schema+"\n"), 0o644))
	assert.NotEqual(t, fp, schemacache.Fingerprint(path))

	assert.Empty(t, schemacache.Fingerprint(filepath.Join(dir, "missing.rb")))
}
