package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/leapstack-labs/schemais/internal/cli/output"
	"github.com/leapstack-labs/schemais/internal/config"
	"github.com/leapstack-labs/schemais/internal/state"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/leapstack-labs/schemais/pkg/schemacache"
	"github.com/spf13/cobra"
)

// ErrIssuesFound is returned when a command finds diagnostics at or above
// the failure threshold. The root command maps it to exit status 1 without
// printing it again.
var ErrIssuesFound = errors.New("schema issues found")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Renderer  *output.Renderer
	Inspector *inspect.Inspector
	Store     *state.Store // nil when the result cache is off
}

// NewCommandContext builds the inspector from the loaded configuration.
// The cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, useCache bool) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutInspector(cmd)
	cfg := cmdCtx.Cfg

	icfg, err := cfg.Inspect()
	if err != nil {
		return nil, nil, err
	}
	cache := schemacache.New(schemacache.WithLogger(cmdCtx.Logger))
	cmdCtx.Inspector = inspect.New(cache, icfg, cmdCtx.Logger)

	cleanup := func() {}
	if useCache && !cfg.NoCache {
		store, err := openStore(cfg.CachePath)
		if err != nil {
			cmdCtx.Logger.Warn("result cache unavailable", "path", cfg.CachePath, "error", err)
		} else {
			cmdCtx.Store = store
			cmdCtx.Inspector.WithResultCache(store)
			cleanup = func() { _ = store.Close() }
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutInspector creates a CommandContext for commands
// that never read models.
func NewCommandContextWithoutInspector(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// getConfig returns the configuration loaded by the root command, loading
// it from the working directory when the command runs on its own.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	cfg, err := config.Load(config.Options{})
	if err != nil {
		return &config.Config{Schema: inspect.DefaultSchemaPath, Output: config.OutputAuto, IndentWidth: 2}
	}
	return cfg
}

func openStore(path string) (*state.Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	store := state.NewStore()
	if err := store.Open(path); err != nil {
		return nil, err
	}
	return store, nil
}

// modelPaths resolves command arguments, falling back to configured paths.
func modelPaths(cfg *config.Config, args []string) ([]string, error) {
	paths := args
	if len(paths) == 0 {
		paths = cfg.Paths
	}
	return inspect.Discover(paths, cfg.Exclude)
}

// workers returns the configured worker count; zero means one per CPU.
func workers(cfg *config.Config) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.NumCPU()
}
