package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/schemais/internal/config"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"
)

// initOverrides maps flags whose values, when given, replace the defaults in
// the generated configuration.
var initOverrides = map[string]string{
	"schema":       "schema",
	"table-prefix": "table_prefix",
	"base-class":   "base_classes",
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a .schemais.yaml with the default settings",
		Long: `Write a .schemais.yaml configuration file to the project root.

The file holds the built-in defaults. Values passed with --schema,
--table-prefix or --base-class are written instead of the defaults.`,
		Example: `  # Initialize in current directory
  schemais init

  # Initialize a project that keeps its schema elsewhere
  schemais init --schema db/primary_schema.rb

  # Overwrite an existing config
  schemais init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	r := NewCommandContextWithoutInspector(cmd).Renderer

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	settings, err := initSettings(cmd)
	if err != nil {
		return err
	}
	data, err := encodeConfig(settings)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil { //nolint:gosec // config file is meant to be shared
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.Success("Created " + configPath)

	schemaPath, _ := settings["schema"].(string)
	if schemaPath == "" {
		schemaPath = inspect.DefaultSchemaPath
	}
	if !filepath.IsAbs(schemaPath) {
		schemaPath = filepath.Join(dir, schemaPath)
	}
	if _, err := os.Stat(schemaPath); err != nil {
		r.Warn(fmt.Sprintf("%s does not exist yet; set schema: in %s if it lives elsewhere", schemaPath, config.FileName))
	}

	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Run 'schemais check' to compare models with the schema")
	r.Println("  2. Run 'schemais fix --dry-run' to preview corrections")
	return nil
}

// initSettings returns the defaults with any overriding flags applied.
func initSettings(cmd *cobra.Command) (map[string]any, error) {
	settings, err := config.Defaults()
	if err != nil {
		return nil, err
	}

	for flag, key := range initOverrides {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if key == "base_classes" {
			settings[key], _ = cmd.Flags().GetStringSlice(flag)
			continue
		}
		settings[key] = f.Value.String()
	}
	return settings, nil
}

func encodeConfig(settings map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# schemais configuration\n")
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
