// Package config loads schemais configuration.
//
// Values are layered, lowest precedence first: built-in defaults, the
// project file (.schemais.yaml or .schemais.yml, searched upward from the
// working directory), SCHEMAIS_ environment variables, then command-line
// flags that were explicitly set.
package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/leapstack-labs/schemais/pkg/patch"
)

// Output formats.
const (
	OutputAuto     = "auto" // text on a terminal, markdown otherwise
	OutputText     = "text"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)

// Config holds every option the CLI understands.
type Config struct {
	Schema            string     `koanf:"schema"`
	BaseClasses       []string   `koanf:"base_classes"`
	TablePrefix       string     `koanf:"table_prefix"`
	RemoveDefinitions []string   `koanf:"remove_definitions"`
	IndentWidth       int        `koanf:"indent_width"`
	Paths             []string   `koanf:"paths"`
	Exclude           []string   `koanf:"exclude"`
	Workers           int        `koanf:"workers"`
	CachePath         string     `koanf:"cache_path"`
	NoCache           bool       `koanf:"no_cache"`
	Output            string     `koanf:"output"`
	Verbose           bool       `koanf:"verbose"`
	Lint              LintConfig `koanf:"lint"`

	// Set by the loader.
	ProjectRoot string `koanf:"-"`
	File        string `koanf:"-"`
}

// LintConfig selects rules and tunes them.
type LintConfig struct {
	Disabled []string                  `koanf:"disabled"`
	Severity map[string]string         `koanf:"severity"`
	Rules    map[string]map[string]any `koanf:"rules"`
}

// RuleOptions is the typed form of one rule's option map.
type RuleOptions struct {
	Autofix       *bool    `mapstructure:"autofix"`
	IgnoreColumns []string `mapstructure:"ignore_columns"`
}

// Validate checks values the loader cannot type-check.
func (c *Config) Validate() error {
	if c.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.IndentWidth < 0 {
		return fmt.Errorf("indent_width must not be negative, got %d", c.IndentWidth)
	}
	if !slices.Contains([]string{OutputAuto, OutputText, OutputMarkdown, OutputJSON}, c.Output) {
		return fmt.Errorf("unknown output format %q (want auto, text, markdown or json)", c.Output)
	}
	for id, sev := range c.Lint.Severity {
		if _, ok := core.ParseSeverity(sev); !ok {
			return fmt.Errorf("lint.severity.%s: unknown severity %q", id, sev)
		}
	}
	for id, raw := range c.Lint.Rules {
		if _, err := DecodeRuleOptions(raw); err != nil {
			return fmt.Errorf("lint.rules.%s: %w", id, err)
		}
	}
	return nil
}

// LintSettings converts the lint section into analyzer configuration.
// Rule IDs are matched case-insensitively by upper-casing them.
func (c *Config) LintSettings() (*lint.Config, error) {
	out := lint.NewConfig()
	for _, id := range c.Lint.Disabled {
		out.Disable(ruleID(id))
	}
	for id, name := range c.Lint.Severity {
		sev, ok := core.ParseSeverity(name)
		if !ok {
			return nil, fmt.Errorf("lint.severity.%s: unknown severity %q", id, name)
		}
		out.SetSeverity(ruleID(id), sev)
	}
	for id, raw := range c.Lint.Rules {
		opts, err := DecodeRuleOptions(raw)
		if err != nil {
			return nil, fmt.Errorf("lint.rules.%s: %w", id, err)
		}
		out.SetRuleOptions(ruleID(id), opts.Map())
	}
	return out, nil
}

// Inspect builds the inspector configuration.
func (c *Config) Inspect() (inspect.Config, error) {
	lc, err := c.LintSettings()
	if err != nil {
		return inspect.Config{}, err
	}
	return inspect.Config{
		SchemaPath:        c.Schema,
		BaseClasses:       c.BaseClasses,
		TablePrefix:       c.TablePrefix,
		RemoveDefinitions: c.RemoveDefinitions,
		Lint:              lc,
		Patch:             patch.Options{IndentWidth: c.IndentWidth},
	}, nil
}

// Map returns the options in the form rules read them.
func (o RuleOptions) Map() map[string]any {
	m := map[string]any{}
	if o.Autofix != nil {
		m[lint.OptionAutofix] = *o.Autofix
	}
	if o.IgnoreColumns != nil {
		m[lint.OptionIgnoreColumns] = o.IgnoreColumns
	}
	return m
}
