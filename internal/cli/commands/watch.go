package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 150 * time.Millisecond

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Severity string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-check models whenever they or db/schema.rb change",
		Long: `Run check once, then keep watching. A changed model file is re-checked on its
own; a changed schema file re-checks every model. Stop with Ctrl-C.`,
		Example: `  schemais watch
  schemais watch app/models/billing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Severity, "severity", "warning", "Minimum severity to report")

	return cmd
}

type changeKind int

const (
	changeNone changeKind = iota
	changeModel
	changeSchema
)

// classify decides what a file system event means for the watch loop.
func classify(ev fsnotify.Event, schemaPath string) changeKind {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return changeNone
	}
	name := filepath.Clean(ev.Name)
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	if name == schemaPath {
		return changeSchema
	}
	if filepath.Ext(name) == ".rb" {
		return changeModel
	}
	return changeNone
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	threshold, err := parseThreshold(opts.Severity)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer
	logger := cmdCtx.Logger
	ctx := cmd.Context()

	roots := args
	if len(roots) == 0 {
		roots = cmdCtx.Cfg.Paths
	}
	schemaPath, err := filepath.Abs(cmdCtx.Inspector.SchemaPath())
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range roots {
		if err := watchTree(watcher, root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}
	if err := watcher.Add(filepath.Dir(schemaPath)); err != nil {
		return fmt.Errorf("failed to watch schema directory: %w", err)
	}

	check := func(paths []string) {
		results, err := cmdCtx.Inspector.InspectFiles(ctx, paths, workers(cmdCtx.Cfg))
		if err != nil && ctx.Err() == nil {
			r.Warn(err.Error())
		}
		r.Println(r.Styles().Muted.Render(fmt.Sprintf("[%s] checked %d files", time.Now().Format(time.TimeOnly), len(paths))))
		if err := renderResults(r, filterResults(results, threshold), nil); err != nil {
			r.Warn(err.Error())
		}
	}
	checkAll := func() {
		paths, err := modelPaths(cmdCtx.Cfg, args)
		if err != nil {
			r.Warn(err.Error())
			return
		}
		check(paths)
	}

	checkAll()
	r.Println(r.Styles().Muted.Render("Watching for changes. Press Ctrl-C to stop."))

	pending := map[string]bool{}
	schemaChanged := false
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, ev.Name)
				}
			}
			switch classify(ev, schemaPath) {
			case changeSchema:
				schemaChanged = true
			case changeModel:
				pending[ev.Name] = true
			default:
				continue
			}
			logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			if schemaChanged {
				schemaChanged = false
				clear(pending)
				if cmdCtx.Inspector.RefreshSchema() {
					r.Println(r.Styles().Info.Render("Schema changed, re-checking all models"))
					checkAll()
				}
				continue
			}
			paths := existing(pending)
			clear(pending)
			if len(paths) > 0 {
				check(paths)
			}
		}
	}
}

// watchTree adds root and its non-hidden subdirectories to the watcher.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func existing(set map[string]bool) []string {
	var out []string
	for p := range set {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

