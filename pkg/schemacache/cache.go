// Package schemacache memoizes parsed schema files.
package schemacache

import (
	"encoding/hex"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/extract"
	"github.com/leapstack-labs/schemais/pkg/ruby"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"
)

// Cache holds the tables of every schema file loaded through it. Entries
// live until Invalidate or Reset; a Cache is meant to be created once per
// run and shared by every inspection.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]extract.Tables
	sf       singleflight.Group
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report unreadable schema files.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(c *Cache) { c.readFile = fn }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]extract.Tables),
		logger:   slog.New(slog.DiscardHandler),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// key identifies one (path, excluded attributes) combination.
func key(path string, excluded []string) string {
	ex := slices.Clone(excluded)
	slices.Sort(ex)
	return path + "\x00" + strings.Join(slices.Compact(ex), ",")
}

// Load returns the tables defined in the schema file at path, with the
// excluded attributes stripped. A file that cannot be read or parsed yields
// an empty mapping, so every table lookup reports "not found".
func (c *Cache) Load(path string, excluded []string) extract.Tables {
	k := key(path, excluded)

	c.mu.RLock()
	tables, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return tables
	}

	v, _, _ := c.sf.Do(k, func() (any, error) {
		c.mu.RLock()
		tables, ok := c.entries[k]
		c.mu.RUnlock()
		if ok {
			return tables, nil
		}

		tables = c.build(path, excluded)

		c.mu.Lock()
		c.entries[k] = tables
		c.mu.Unlock()
		return tables, nil
	})
	return v.(extract.Tables)
}

// Table returns one table of the schema file, or nil.
func (c *Cache) Table(path string, excluded []string, name string) *core.TableDef {
	return c.Load(path, excluded)[name]
}

func (c *Cache) build(path string, excluded []string) extract.Tables {
	data, err := c.readFile(path)
	if err != nil {
		c.logger.Warn("schema file unreadable", "path", path, "error", err)
		return extract.Tables{}
	}
	tree, err := ruby.Parse(path, string(data))
	if err != nil {
		c.logger.Warn("schema file unparsable", "path", path, "error", err)
		return extract.Tables{}
	}
	tables := extract.Schema(tree, excluded)
	c.logger.Debug("schema loaded", "path", path, "tables", len(tables))
	return tables
}

// Invalidate drops every entry loaded from path.
func (c *Cache) Invalidate(path string) {
	prefix := path + "\x00"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]extract.Tables)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fingerprint returns the BLAKE3 hex digest of the file at path, or "" when
// it cannot be read. Callers compare fingerprints to decide when to
// Invalidate.
func Fingerprint(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return Sum(data)
}

// Sum returns the BLAKE3 hex digest of data.
func Sum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
