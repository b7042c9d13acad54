package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemais/internal/cli/output"
	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

func parseThreshold(s string) (core.Severity, error) {
	sev, ok := core.ParseSeverity(s)
	if !ok {
		return core.SeverityWarning, fmt.Errorf("unknown severity %q (want error, warning, info or hint)", s)
	}
	return sev, nil
}

// atLeast keeps diagnostics at or above threshold.
func atLeast(diags []lint.Diagnostic, threshold core.Severity) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, d := range diags {
		if d.Severity.AtLeast(threshold) {
			out = append(out, d)
		}
	}
	return out
}

// filterResults applies the threshold to every result, keeping the
// original results untouched.
func filterResults(results []*inspect.FileResult, threshold core.Severity) []*inspect.FileResult {
	out := make([]*inspect.FileResult, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		cp := *res
		cp.Diagnostics = atLeast(res.Diagnostics, threshold)
		out = append(out, &cp)
	}
	return out
}

func checkSummary(results []*inspect.FileResult) output.CheckSummary {
	s := inspect.Summarize(results)
	return output.CheckSummary{
		Files:    s.Files,
		Models:   s.Models,
		Cached:   s.Cached,
		Issues:   s.Total(),
		Errors:   s.BySeverity[core.SeverityError],
		Warnings: s.BySeverity[core.SeverityWarning],
		Info:     s.BySeverity[core.SeverityInfo],
		Hints:    s.BySeverity[core.SeverityHint],
		Fixable:  s.Fixable,
	}
}

// renderResults prints diagnostics in the renderer's mode. Files listed in
// fixed are marked as rewritten.
func renderResults(r *output.Renderer, results []*inspect.FileResult, fixed map[string]bool) error {
	summary := checkSummary(results)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		doc := output.CheckOutput{Summary: summary, Files: []output.CheckFileResult{}}
		for _, res := range results {
			if len(res.Diagnostics) == 0 && !fixed[res.Path] {
				continue
			}
			fr := output.CheckFileResult{Path: res.Path, Fixed: fixed[res.Path], Diagnostics: []output.CheckDiagnostic{}}
			for _, d := range res.Diagnostics {
				fr.Diagnostics = append(fr.Diagnostics, output.CheckDiagnostic{
					RuleID:   d.RuleID,
					Severity: d.Severity.String(),
					Message:  d.Message,
					Model:    d.Model,
					Line:     d.Location.Span.Start.Line,
					Column:   d.Location.Span.Start.Column,
					Fixable:  d.Fixable(),
				})
			}
			doc.Files = append(doc.Files, fr)
		}
		return r.JSON(doc)
	case output.ModeMarkdown:
		renderMarkdown(r, results, fixed)
	default:
		renderText(r, results, fixed)
	}

	if summary.Issues == 0 {
		r.Success(fmt.Sprintf("No schema issues found in %d files", summary.Files))
		return nil
	}
	r.Printf("Summary: %s in %d files\n", summaryLine(summary), summary.Files)
	return nil
}

func renderText(r *output.Renderer, results []*inspect.FileResult, fixed map[string]bool) {
	styles := r.Styles()
	for _, res := range results {
		if len(res.Diagnostics) == 0 && !fixed[res.Path] {
			continue
		}
		header := styles.Path.Render(res.Path)
		if fixed[res.Path] {
			header += " " + styles.Success.Render("(fixed)")
		}
		r.Println(header)
		for _, d := range res.Diagnostics {
			loc := fmt.Sprintf("%d:%d", d.Location.Span.Start.Line, d.Location.Span.Start.Column)
			r.Printf("  %s  %s  %s  %s\n",
				styles.Location.Render(fmt.Sprintf("%-7s", loc)),
				styles.Severity(d.Severity).Render(fmt.Sprintf("%-7s", d.Severity)),
				styles.RuleID.Render(d.RuleID),
				d.Message,
			)
		}
		r.Println("")
	}
}

func renderMarkdown(r *output.Renderer, results []*inspect.FileResult, fixed map[string]bool) {
	for _, res := range results {
		if len(res.Diagnostics) == 0 && !fixed[res.Path] {
			continue
		}
		title := "## " + res.Path
		if fixed[res.Path] {
			title += " (fixed)"
		}
		r.Println(title)
		r.Println("")
		for _, d := range res.Diagnostics {
			r.Printf("- `%d:%d` **%s** %s: %s\n",
				d.Location.Span.Start.Line, d.Location.Span.Start.Column,
				d.Severity, d.RuleID, d.Message)
		}
		r.Println("")
	}
}

func summaryLine(s output.CheckSummary) string {
	parts := []string{fmt.Sprintf("%d issues", s.Issues)}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.Warnings))
	}
	if s.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", s.Info))
	}
	if s.Hints > 0 {
		parts = append(parts, fmt.Sprintf("%d hints", s.Hints))
	}
	if s.Fixable > 0 {
		parts = append(parts, fmt.Sprintf("%d fixable", s.Fixable))
	}
	return strings.Join(parts, ", ")
}
