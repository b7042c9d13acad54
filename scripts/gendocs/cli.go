package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/schemais/internal/cli"
	"github.com/leapstack-labs/schemais/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	env, err := envRows()
	if err != nil {
		return err
	}

	pages := map[string][]byte{"index.md": cliIndex(root, env)}
	for _, cmd := range visibleCommands(root) {
		pages[cmd.Name()+".md"] = commandPage(cmd)
	}

	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(outDir, name), pages[name], 0600); err != nil {
			return err
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// visibleCommands returns the documented subcommands of cmd.
func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || !c.IsAvailableCommand() || c.Name() == "help" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func cliIndex(root *cobra.Command, env [][]string) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for schemais")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("schemais compares the_schema_is declarations in ActiveRecord models with db/schema.rb and rewrites them when they drift.")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/schemais/cmd/schemais@latest\nschemais check app/models")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlags(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph(fmt.Sprintf("Configuration keys can also come from %s variables; %s separates nested keys. "+
		"Flags override the environment, which overrides the config file.",
		InlineCode(config.EnvPrefix+"*"), InlineCode("__")))
	w.Table([]string{"Variable", "Key"}, env)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode(fmt.Sprint(cli.ExitOK)), "No issues at or above the severity threshold"},
		{InlineCode(fmt.Sprint(cli.ExitIssues)), "Issues were found"},
		{InlineCode(fmt.Sprint(cli.ExitError)), "The command failed; see stderr"},
	})
	return w.Bytes()
}

// envRows lists the scalar configuration keys with their variable names.
func envRows() ([][]string, error) {
	defaults, err := config.Defaults()
	if err != nil {
		return nil, err
	}
	var rows [][]string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := prefix + k
			if sub, ok := v.(map[string]any); ok {
				walk(key+".", sub)
				continue
			}
			name := config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
			rows = append(rows, []string{InlineCode(name), InlineCode(key)})
		}
	}
	walk("", defaults)
	sort.Slice(rows, func(i, j int) bool { return rows[i][1] < rows[j][1] })
	return rows, nil
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.CommandPath(), cleanDescription(cmd.Short))
	w.GeneratedMarker()

	w.Header(1, cmd.CommandPath())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)
	w.CodeBlock("bash", cmd.UseLine())

	if subs := visibleCommands(cmd); len(subs) > 0 {
		w.Header(2, "Subcommands")
		var items []string
		for _, sub := range subs {
			items = append(items, InlineCode(sub.Name())+": "+cleanDescription(sub.Short))
		}
		w.BulletList(items)
	}
	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlags(w, cmd.LocalFlags())
	}
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Paragraph("Global options are listed in the [CLI reference](/cli/).")
	}
	return w.Bytes()
}

func writeFlags(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		name := "--" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", " + name
		}
		rows = append(rows, []string{InlineCode(name), flagDefault(f), cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Default", "Description"}, rows)
}

func flagDefault(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "[]", "false":
		return ""
	}
	return InlineCode(f.DefValue)
}

// dedent strips the indentation shared by every non-blank line.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		}
	}
	return strings.Join(lines, "\n")
}
