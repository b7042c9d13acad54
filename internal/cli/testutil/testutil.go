// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/schemais/internal/cli/output"
	"github.com/leapstack-labs/schemais/internal/testutil"
)

// Schema is the db/schema.rb written by SetupTestProject.
const Schema = `ActiveRecord::Schema.define(version: 2019_07_14_140223) do
  create_table "comments", force: :cascade do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
  end

  create_table "users", force: :cascade do |t|
    t.string   "name", null: false
    t.datetime "created_at", null: false
  end
end
`

// CommentModel declares comments with one column missing.
const CommentModel = `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
  end
end
`

// FixedCommentModel is CommentModel after fixing.
const FixedCommentModel = `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
  end
end
`

// UserModel is in step with Schema.
const UserModel = `class User < ApplicationRecord
  the_schema_is "users" do |t|
    t.string   "name", null: false
    t.datetime "created_at", null: false
  end
end
`

// SetupTestProject creates a temporary Rails project holding Schema, plus
// the given files keyed by slash-separated relative path.
func SetupTestProject(t *testing.T, files map[string]string) string {
	t.Helper()
	all := map[string]string{"db/schema.rb": Schema}
	for k, v := range files {
		all[k] = v
	}
	return testutil.WriteFiles(t, t.TempDir(), all)
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation: balanced code
// fences and no empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
