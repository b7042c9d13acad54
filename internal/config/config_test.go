package config

import (
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemais/internal/testutil"
	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("schema", "", "")
	fs.String("table-prefix", "", "")
	fs.StringSlice("base-class", nil, "")
	fs.StringSlice("disable", nil, "")
	fs.Int("workers", 0, "")
	fs.Bool("no-cache", false, "")
	fs.String("output", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Options{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "db/schema.rb"), cfg.Schema)
	assert.Equal(t, []string{"ApplicationRecord", "ActiveRecord::Base"}, cfg.BaseClasses)
	assert.Equal(t, []string{filepath.Join(dir, "app/models")}, cfg.Paths)
	assert.Equal(t, filepath.Join(dir, ".schemais/cache.db"), cfg.CachePath)
	assert.Equal(t, 2, cfg.IndentWidth)
	assert.Equal(t, OutputAuto, cfg.Output)
	assert.Empty(t, cfg.File)
	assert.Equal(t, dir, cfg.ProjectRoot)
}

func TestLoad_Precedence(t *testing.T) {
	root := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		".schemais.yaml": `schema: db/main_schema.rb
table_prefix: file_
workers: 3
lint:
  disabled: [SI04]
  severity:
    SI03: error
  rules:
    SI05:
      autofix: false
`,
		"app/models/.keep": "",
	})
	sub := filepath.Join(root, "app/models")

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load(Options{Dir: sub})
		require.NoError(t, err)
		assert.Equal(t, root, cfg.ProjectRoot)
		assert.Equal(t, filepath.Join(root, FileName), cfg.File)
		assert.Equal(t, filepath.Join(root, "db/main_schema.rb"), cfg.Schema)
		assert.Equal(t, "file_", cfg.TablePrefix)
		assert.Equal(t, 3, cfg.Workers)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("SCHEMAIS_TABLE_PREFIX", "env_")
		t.Setenv("SCHEMAIS_WORKERS", "5")
		cfg, err := Load(Options{Dir: sub})
		require.NoError(t, err)
		assert.Equal(t, "env_", cfg.TablePrefix)
		assert.Equal(t, 5, cfg.Workers)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("SCHEMAIS_TABLE_PREFIX", "env_")
		fs := testFlags()
		require.NoError(t, fs.Parse([]string{"--table-prefix", "flag_", "--base-class", "Legacy::Record", "--disable", "SI01"}))

		cfg, err := Load(Options{Dir: sub, Flags: fs})
		require.NoError(t, err)
		assert.Equal(t, "flag_", cfg.TablePrefix)
		assert.Equal(t, []string{"Legacy::Record"}, cfg.BaseClasses)
		assert.Equal(t, []string{"SI01"}, cfg.Lint.Disabled)
		assert.Equal(t, 3, cfg.Workers, "unchanged flags do not override")
	})

	t.Run("lint settings", func(t *testing.T) {
		cfg, err := Load(Options{Dir: sub})
		require.NoError(t, err)
		lc, err := cfg.LintSettings()
		require.NoError(t, err)
		assert.True(t, lc.IsDisabled("SI04"))
		assert.Equal(t, core.SeverityError, lc.GetSeverity("SI03", core.SeverityWarning))
		assert.Equal(t, map[string]any{lint.OptionAutofix: false}, lc.GetRuleOptions("SI05"))
	})
}

func TestLoad_ExplicitFile(t *testing.T) {
	root := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"conf/custom.yml": "schema: ../db/schema.rb\noutput: json\n",
	})

	cfg, err := Load(Options{File: filepath.Join(root, "conf/custom.yml"), Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "db/schema.rb"), cfg.Schema)
	assert.Equal(t, OutputJSON, cfg.Output)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{name: "bad output", content: "output: xml\n", errSub: "unknown output format"},
		{name: "bad severity", content: "lint:\n  severity:\n    SI01: fatal\n", errSub: "unknown severity"},
		{name: "unknown rule option", content: "lint:\n  rules:\n    SI03:\n      colour: red\n", errSub: "lint.rules.SI03"},
		{name: "negative workers", content: "workers: -1\n", errSub: "workers"},
		{name: "malformed yaml", content: "schema: [\n", errSub: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{FileName: tt.content})
			_, err := Load(Options{Dir: dir})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestDecodeRuleOptions(t *testing.T) {
	opts, err := DecodeRuleOptions(map[string]any{
		"autofix":        "false",
		"ignore_columns": "created_at,updated_at",
	})
	require.NoError(t, err)
	require.NotNil(t, opts.Autofix)
	assert.False(t, *opts.Autofix)
	assert.Equal(t, []string{"created_at", "updated_at"}, opts.IgnoreColumns)
	assert.Equal(t, map[string]any{
		lint.OptionAutofix:       false,
		lint.OptionIgnoreColumns: []string{"created_at", "updated_at"},
	}, opts.Map())

	_, err = DecodeRuleOptions(map[string]any{"nope": 1})
	require.Error(t, err)
}

func TestRuleIDByName(t *testing.T) {
	cfg := &Config{Lint: LintConfig{Disabled: []string{"schema.unknown_column", "si02"}}}
	lc, err := cfg.LintSettings()
	require.NoError(t, err)
	assert.True(t, lc.IsDisabled("SI04"))
	assert.True(t, lc.IsDisabled("SI02"))
	assert.False(t, lc.IsDisabled("SI03"))
}
