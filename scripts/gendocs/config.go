package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/schemais/internal/config"
	yamlv3 "gopkg.in/yaml.v3"
)

// configDescriptions documents each top-level key of the config file.
var configDescriptions = map[string]string{
	"schema":             "Path to the schema file, relative to the project root",
	"base_classes":       "Superclasses that mark a class as a model",
	"table_prefix":       "Prefix prepended to table names inferred from class names",
	"remove_definitions": "Column attributes ignored when comparing, e.g. comment or limit",
	"indent_width":       "Indentation used for inserted the_schema_is blocks",
	"paths":              "Directories or files checked when no paths are given",
	"exclude":            "Glob patterns of model files to skip",
	"workers":            "Files inspected in parallel; 0 means one per CPU",
	"cache_path":         "Location of the result cache database",
	"no_cache":           "Disable the result cache",
	"output":             "Output format: auto, text, markdown or json",
	"verbose":            "Log debug messages to stderr",
	"lint":               "Rule selection and tuning, see below",
}

func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	defaults, err := config.Defaults()
	if err != nil {
		return err
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "schemais configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("schemais reads %s (or %s) from the project root, found by searching upward from the working directory. "+
		"Run %s to write one with the defaults below.",
		InlineCode(config.FileName), InlineCode(config.FileNameAlt), InlineCode("schemais init")))

	w.Header(2, "Settings")
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows [][]string
	for _, k := range keys {
		rows = append(rows, []string{InlineCode(k), formatDefault(defaults[k]), configDescriptions[k]})
	}
	w.Table([]string{"Key", "Default", "Description"}, rows)

	w.Header(2, "Rules")
	w.Paragraph("Rules are named by ID or by name. Each rule accepts the options listed on its page.")
	w.CodeBlock("yaml", `lint:
  disabled: [SI04]
  severity:
    SI01: error
  rules:
    SI03:
      ignore_columns: [legacy_id]
    schema.wrong_column_definition:
      autofix: false`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

// formatDefault renders a default value as inline YAML.
func formatDefault(v any) string {
	out, err := yamlv3.Marshal(v)
	if err != nil {
		return "-"
	}
	s := strings.TrimSpace(string(out))
	if strings.Contains(s, "\n") {
		s = strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", ", ")), " ")
	}
	if s == "" || s == `""` {
		return "-"
	}
	return InlineCode(s)
}
