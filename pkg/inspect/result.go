package inspect

import (
	"errors"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/leapstack-labs/schemais/pkg/patch"
)

// ErrParseErrors is returned by Fixed for files that did not parse cleanly.
var ErrParseErrors = errors.New("file has parse errors")

// FileResult is the outcome of inspecting one file.
type FileResult struct {
	Path        string
	Source      string
	Models      []string // class names of the models found
	Diagnostics []lint.Diagnostic
	ParseErrors []error
	Cached      bool // diagnostics came from the result cache
}

// Fixable reports whether any diagnostic carries edits.
func (r *FileResult) Fixable() bool {
	for _, d := range r.Diagnostics {
		if d.Fixable() {
			return true
		}
	}
	return false
}

// Edits merges the edits of every fixable diagnostic.
func (r *FileResult) Edits() []patch.Edit {
	var lists [][]patch.Edit
	for _, d := range r.Diagnostics {
		for _, f := range d.Fixes {
			lists = append(lists, f.Edits)
		}
	}
	return patch.Merge(lists...)
}

// Fixed applies every fix to the source. It reports whether the source
// changed. Files with parse errors are never rewritten.
func (r *FileResult) Fixed() (string, bool, error) {
	if len(r.ParseErrors) > 0 {
		return r.Source, false, ErrParseErrors
	}
	edits := r.Edits()
	if len(edits) == 0 {
		return r.Source, false, nil
	}
	out, err := patch.Apply(r.Source, edits)
	if err != nil {
		return r.Source, false, err
	}
	return out, out != r.Source, nil
}

// Summary counts diagnostics across results.
type Summary struct {
	Files      int
	Models     int
	Cached     int
	Fixable    int
	BySeverity map[core.Severity]int
}

// Total returns the number of diagnostics.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.BySeverity {
		n += c
	}
	return n
}

// HasErrors reports whether any diagnostic has error severity.
func (s Summary) HasErrors() bool {
	return s.BySeverity[core.SeverityError] > 0
}

// Summarize tallies a set of results. Nil results are skipped.
func Summarize(results []*FileResult) Summary {
	s := Summary{BySeverity: map[core.Severity]int{}}
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Files++
		s.Models += len(r.Models)
		if r.Cached {
			s.Cached++
		}
		for _, d := range r.Diagnostics {
			s.BySeverity[d.Severity]++
			if d.Fixable() {
				s.Fixable++
			}
		}
	}
	return s
}
