package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
	_ "github.com/leapstack-labs/schemais/pkg/lint/rules" // register rules
)

func generateRuleDocs(outDir string) error {
	log.Printf("Generating rule docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var rules []core.RuleInfo
	for _, def := range lint.GetAll() {
		rules = append(rules, def.Info())
	}

	if err := generateRulesIndex(outDir, rules); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	for _, rule := range rules {
		w := NewMarkdownWriter()
		w.Frontmatter(rule.ID+" - "+rule.Name, cleanDescription(rule.Description))
		w.GeneratedMarker()
		writeRuleDoc(w, rule)
		name := strings.ToLower(rule.ID) + ".md"
		if err := os.WriteFile(filepath.Join(outDir, name), w.Bytes(), 0600); err != nil {
			return err
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

func generateRulesIndex(outDir string, rules []core.RuleInfo) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Rules", "Rules that compare models with db/schema.rb")
	w.GeneratedMarker()

	w.Header(1, "Rules")
	w.Paragraph(fmt.Sprintf("schemais checks every model with %d rules.", len(rules)))

	var rows [][]string
	for _, r := range rules {
		fix := "no"
		if r.Fixable {
			fix = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/rules/%s)", r.ID, strings.ToLower(r.ID)),
			InlineCode(r.Name),
			InlineCode(r.DefaultSeverity.String()),
			fix,
			cleanDescription(r.Description),
		})
	}
	w.Table([]string{"ID", "Name", "Severity", "Autofix", "Description"}, rows)

	w.Header(2, "Severity Levels")
	w.Table(
		[]string{"Severity", "Description"},
		[][]string{
			{InlineCode("error"), "Critical issue that should be fixed"},
			{InlineCode("warning"), "Potential issue that should be reviewed"},
			{InlineCode("info"), "Informational feedback"},
			{InlineCode("hint"), "Suggestion for improvement"},
		},
	)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

func writeRuleDoc(w *MarkdownWriter, rule core.RuleInfo) {
	w.Header(1, fmt.Sprintf("%s - %s", rule.ID, rule.Name))
	w.Line(fmt.Sprintf("**Severity:** %s", InlineCode(rule.DefaultSeverity.String())))
	w.Newline()
	w.Paragraph(rule.Description)

	if rule.Rationale != "" {
		w.Header(2, "Why This Matters")
		w.Paragraph(rule.Rationale)
	}
	if rule.BadExample != "" {
		w.Header(2, "Bad")
		w.CodeBlock("ruby", rule.BadExample)
	}
	if rule.GoodExample != "" {
		w.Header(2, "Good")
		w.CodeBlock("ruby", rule.GoodExample)
	}
	if rule.Fix != "" {
		w.Header(2, "How to Fix")
		w.Paragraph(rule.Fix)
	}
	if len(rule.ConfigKeys) > 0 {
		w.Header(2, "Configuration")
		w.Paragraph("This rule accepts the following options: " + InlineCode(strings.Join(rule.ConfigKeys, ", ")))
	}
}
