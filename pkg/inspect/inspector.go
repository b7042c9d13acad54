package inspect

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/leapstack-labs/schemais/pkg/extract"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/leapstack-labs/schemais/pkg/patch"
	"github.com/leapstack-labs/schemais/pkg/query"
	"github.com/leapstack-labs/schemais/pkg/reconcile"
	"github.com/leapstack-labs/schemais/pkg/ruby"
	"github.com/leapstack-labs/schemais/pkg/schemacache"
	"golang.org/x/sync/errgroup"

	// register the schema rules
	_ "github.com/leapstack-labs/schemais/pkg/lint/rules"
)

// DefaultSchemaPath is where Rails keeps the authoritative schema.
const DefaultSchemaPath = "db/schema.rb"

// Config controls an inspection run.
type Config struct {
	SchemaPath  string // DefaultSchemaPath when empty
	BaseClasses []string
	TablePrefix string
	// RemoveDefinitions lists column attributes ignored on both sides.
	RemoveDefinitions []string
	Lint              *lint.Config
	Patch             patch.Options
}

func (c Config) schemaPath() string {
	return cmp.Or(c.SchemaPath, DefaultSchemaPath)
}

// Hash fingerprints everything in the configuration that affects results.
func (c Config) Hash() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return schemacache.Sum(data)
}

// CacheKey identifies a stored result. A result is reusable only while the
// file, the schema and the configuration are all unchanged.
type CacheKey struct {
	Path              string
	ContentHash       string
	SchemaFingerprint string
	ConfigHash        string
}

// ResultCache persists diagnostics between runs.
type ResultCache interface {
	Lookup(ctx context.Context, key CacheKey) ([]lint.Diagnostic, bool, error)
	Save(ctx context.Context, key CacheKey, diags []lint.Diagnostic) error
}

// Inspector checks model files against the schema.
type Inspector struct {
	cache    *schemacache.Cache
	config   Config
	analyzer *lint.Analyzer
	logger   *slog.Logger
	results  ResultCache

	mu       sync.RWMutex
	schemaFP string
}

// New creates an inspector. The schema cache is shared by every file the
// inspector sees; a nil logger discards output.
func New(cache *schemacache.Cache, cfg Config, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cache == nil {
		cache = schemacache.New(schemacache.WithLogger(logger))
	}
	return &Inspector{
		cache:    cache,
		config:   cfg,
		analyzer: lint.NewAnalyzer(cfg.Lint),
		logger:   logger,
		schemaFP: schemacache.Fingerprint(cfg.schemaPath()),
	}
}

// WithResultCache makes InspectFile reuse stored results.
func (i *Inspector) WithResultCache(rc ResultCache) *Inspector {
	i.results = rc
	return i
}

// SchemaPath returns the schema file the inspector reads.
func (i *Inspector) SchemaPath() string {
	return i.config.schemaPath()
}

// SchemaFingerprint returns the fingerprint of the schema file as last seen.
func (i *Inspector) SchemaFingerprint() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.schemaFP
}

// RefreshSchema re-fingerprints the schema file and drops its cached tables
// when it changed. It reports whether it did.
func (i *Inspector) RefreshSchema() bool {
	fp := schemacache.Fingerprint(i.SchemaPath())

	i.mu.Lock()
	changed := fp != i.schemaFP
	i.schemaFP = fp
	i.mu.Unlock()

	if changed {
		i.cache.Invalidate(i.SchemaPath())
		i.logger.Debug("schema changed", "path", i.SchemaPath(), "fingerprint", fp)
	}
	return changed
}

var anyClass = query.Kind(ruby.KindClass)

// InspectSource checks every model class in src. Parse errors are recorded
// on the result rather than returned; the error reports classes whose
// inspection failed outright.
func (i *Inspector) InspectSource(path, src string) (*FileResult, error) {
	tree, err := ruby.Parse(path, src)
	res := &FileResult{Path: path, Source: src}
	if err != nil {
		i.logger.Debug("model parse error", "path", path, "error", err)
		res.ParseErrors = append(res.ParseErrors, err)
	}

	var errs []error
	for _, class := range query.Search(anyClass, tree.Root(), query.Options{}) {
		if err := i.inspectClass(res, class.Node); err != nil {
			errs = append(errs, err)
		}
	}

	slices.SortStableFunc(res.Diagnostics, func(a, b lint.Diagnostic) int {
		return cmp.Compare(a.Location.Span.Start.Offset, b.Location.Span.Start.Offset)
	})
	return res, errors.Join(errs...)
}

func (i *Inspector) inspectClass(res *FileResult, class ruby.Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s:%d: inspecting class: %v", res.Path, class.Span().Start.Line, r)
			i.logger.Warn("class inspection failed", "path", res.Path, "line", class.Span().Start.Line, "error", r)
		}
	}()

	model, ok := extract.Model(class, extract.ModelConfig{
		BaseClasses: i.config.BaseClasses,
		TablePrefix: i.config.TablePrefix,
		Excluded:    i.config.RemoveDefinitions,
	})
	if !ok {
		return nil
	}
	res.Models = append(res.Models, model.ClassName)

	table := i.cache.Table(i.SchemaPath(), i.config.RemoveDefinitions, model.TableName)
	ctx := &lint.Context{
		File:          res.Path,
		SchemaPath:    i.SchemaPath(),
		Model:         model,
		Table:         table,
		Discrepancies: reconcile.Reconcile(model, table),
		Patch:         i.config.Patch,
	}
	diags := i.analyzer.Analyze(ctx)
	for j := range diags {
		diags[j].Location.File = res.Path
	}
	res.Diagnostics = append(res.Diagnostics, diags...)

	i.logger.Debug("inspected model",
		"path", res.Path,
		"class", model.ClassName,
		"table", model.TableName,
		"discrepancies", len(ctx.Discrepancies))
	return nil
}

// InspectFile reads and checks one file, reusing a stored result when the
// inspector has a result cache and nothing changed.
func (i *Inspector) InspectFile(ctx context.Context, path string) (*FileResult, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from discovery or the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	src := string(content)

	key := CacheKey{
		Path:              path,
		ContentHash:       schemacache.Sum(content),
		SchemaFingerprint: i.SchemaFingerprint(),
		ConfigHash:        i.config.Hash(),
	}
	if i.results != nil {
		diags, ok, err := i.results.Lookup(ctx, key)
		if err != nil {
			i.logger.Warn("result cache lookup failed", "path", path, "error", err)
		} else if ok {
			i.logger.Debug("skipping unchanged file", "path", path)
			return &FileResult{Path: path, Source: src, Diagnostics: diags, Cached: true}, nil
		}
	}

	res, err := i.InspectSource(path, src)
	if err != nil {
		return res, err
	}
	if i.results != nil && len(res.ParseErrors) == 0 {
		if err := i.results.Save(ctx, key, res.Diagnostics); err != nil {
			i.logger.Warn("result cache save failed", "path", path, "error", err)
		}
	}
	return res, nil
}

// InspectFiles checks files concurrently with at most workers goroutines
// and returns the results in input order. Files that cannot be read are
// reported through the error; the results of the others are kept.
func (i *Inspector) InspectFiles(ctx context.Context, paths []string, workers int) ([]*FileResult, error) {
	results := make([]*FileResult, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for idx, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx], errs[idx] = i.InspectFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}
