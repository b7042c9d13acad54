package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemais/internal/cli/output"
	clitest "github.com/leapstack-labs/schemais/internal/cli/testutil"
	"github.com/leapstack-labs/schemais/internal/config"
	"github.com/leapstack-labs/schemais/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, dir, mode string) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.Options{Dir: dir})
	require.NoError(t, err)
	cfg.Output = mode
	cfg.Workers = 2
	return cfg
}

func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func driftedProject(t *testing.T) string {
	return clitest.SetupTestProject(t, map[string]string{
		"app/models/comment.rb": clitest.CommentModel,
		"app/models/user.rb":    clitest.UserModel,
	})
}

func TestCheckCommand_JSON(t *testing.T) {
	dir := driftedProject(t)
	cfg := testConfig(t, dir, config.OutputJSON)

	out, _, err := execute(t, NewCheckCommand(), cfg)
	require.ErrorIs(t, err, ErrIssuesFound)

	var doc output.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 2, doc.Summary.Files)
	assert.Equal(t, 2, doc.Summary.Models)
	assert.Equal(t, 1, doc.Summary.Issues)
	assert.Equal(t, 1, doc.Summary.Warnings)
	assert.Equal(t, 1, doc.Summary.Fixable)
	assert.Zero(t, doc.Summary.Cached)

	require.Len(t, doc.Files, 1)
	assert.Equal(t, filepath.Join(dir, "app/models/comment.rb"), doc.Files[0].Path)
	require.Len(t, doc.Files[0].Diagnostics, 1)
	d := doc.Files[0].Diagnostics[0]
	assert.Equal(t, "SI03", d.RuleID)
	assert.Equal(t, "warning", d.Severity)
	assert.Equal(t, "Comment", d.Model)
	assert.Equal(t, `Column "article_id" definition is missing`, d.Message)
	assert.True(t, d.Fixable)

	out, _, err = execute(t, NewCheckCommand(), cfg)
	require.ErrorIs(t, err, ErrIssuesFound)
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 2, doc.Summary.Cached)
	assert.Equal(t, 1, doc.Summary.Issues)
}

func TestCheckCommand_Clean(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"app/models/user.rb": clitest.UserModel})
	cfg := testConfig(t, dir, config.OutputMarkdown)
	cfg.NoCache = true

	out, _, err := execute(t, NewCheckCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No schema issues found in 1 files")
	_, statErr := os.Stat(cfg.CachePath)
	assert.True(t, os.IsNotExist(statErr), "no cache should be created")
}

func TestCheckCommand_Severity(t *testing.T) {
	dir := driftedProject(t)
	cfg := testConfig(t, dir, config.OutputMarkdown)

	tests := []struct {
		name     string
		severity string
		wantErr  error
		wantOut  string
	}{
		{name: "warnings reported", severity: "warning", wantErr: ErrIssuesFound, wantOut: "**warning** SI03"},
		{name: "errors only", severity: "error", wantOut: "No schema issues found in 2 files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, NewCheckCommand(), cfg, "--severity", tt.severity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out, tt.wantOut)
			clitest.AssertNoANSI(t, out)
			clitest.AssertValidMarkdown(t, out)
		})
	}
}

func TestCheckCommand_BadSeverity(t *testing.T) {
	dir := driftedProject(t)
	_, _, err := execute(t, NewCheckCommand(), testConfig(t, dir, config.OutputText), "--severity", "fatal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")
}

func TestFixCommand_Writes(t *testing.T) {
	dir := driftedProject(t)
	cfg := testConfig(t, dir, config.OutputMarkdown)

	out, _, err := execute(t, NewFixCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "comment.rb (fixed)")

	got, err := os.ReadFile(filepath.Join(dir, "app/models/comment.rb"))
	require.NoError(t, err)
	assert.Equal(t, clitest.FixedCommentModel, string(got))

	user, err := os.ReadFile(filepath.Join(dir, "app/models/user.rb"))
	require.NoError(t, err)
	assert.Equal(t, clitest.UserModel, string(user))
}

func TestFixCommand_DryRun(t *testing.T) {
	dir := driftedProject(t)
	cfg := testConfig(t, dir, config.OutputMarkdown)

	out, _, err := execute(t, NewFixCommand(), cfg, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "```diff")
	assert.Contains(t, out, `+    t.integer  "article_id"`)
	clitest.AssertValidMarkdown(t, out)

	got, err := os.ReadFile(filepath.Join(dir, "app/models/comment.rb"))
	require.NoError(t, err)
	assert.Equal(t, clitest.CommentModel, string(got))
}

type fakePrompter struct {
	answers []answer
	asked   []string
}

func (p *fakePrompter) Confirm(q string) (answer, error) {
	p.asked = append(p.asked, q)
	if len(p.answers) == 0 {
		return answerQuit, nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *fakePrompter) Close() error { return nil }

func TestFixCommand_Interactive(t *testing.T) {
	tests := []struct {
		name    string
		answer  answer
		want    string
		wantErr error
	}{
		{name: "declined", answer: answerNo, want: clitest.CommentModel, wantErr: ErrIssuesFound},
		{name: "accepted", answer: answerYes, want: clitest.FixedCommentModel},
		{name: "quit", answer: answerQuit, want: clitest.CommentModel, wantErr: ErrIssuesFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := driftedProject(t)
			fake := &fakePrompter{answers: []answer{tt.answer}}
			orig := newPrompter
			newPrompter = func(*cobra.Command) (prompter, error) { return fake, nil }
			t.Cleanup(func() { newPrompter = orig })

			_, _, err := execute(t, NewFixCommand(), testConfig(t, dir, config.OutputMarkdown), "--interactive")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			require.Len(t, fake.asked, 1)
			assert.Contains(t, fake.asked[0], "Apply 1 fixes to")
			got, err := os.ReadFile(filepath.Join(dir, "app/models/comment.rb"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFixCommand_DryRunAndInteractive(t *testing.T) {
	dir := driftedProject(t)
	_, _, err := execute(t, NewFixCommand(), testConfig(t, dir, config.OutputText), "-n", "-i")
	require.Error(t, err)
}

func TestParseAnswer(t *testing.T) {
	tests := map[string]struct {
		want answer
		ok   bool
	}{
		"y":     {want: answerYes, ok: true},
		" YES ": {want: answerYes, ok: true},
		"":      {want: answerNo, ok: true},
		"n":     {want: answerNo, ok: true},
		"a":     {want: answerAll, ok: true},
		"q":     {want: answerQuit, ok: true},
		"maybe": {want: answerNo, ok: false},
	}

	for in, tt := range tests {
		got, ok := parseAnswer(in)
		assert.Equal(t, tt.ok, ok, in)
		assert.Equal(t, tt.want, got, in)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, config.OutputMarkdown)

	cmd := NewInitCommand()
	cmd.Flags().String("schema", "", "")
	out, errOut, err := execute(t, cmd, cfg, "--schema", "db/primary_schema.rb", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+filepath.Join(dir, config.FileName))
	assert.Contains(t, errOut, "does not exist yet")

	loaded, err := config.Load(config.Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.FileName), loaded.File)
	assert.Equal(t, filepath.Join(dir, "db/primary_schema.rb"), loaded.Schema)
	assert.Equal(t, []string{"ApplicationRecord", "ActiveRecord::Base"}, loaded.BaseClasses)

	_, _, err = execute(t, NewInitCommand(), cfg, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, NewInitCommand(), cfg, "--force", dir)
	require.NoError(t, err)
}

func TestDoctorCommand_JSON(t *testing.T) {
	dir := driftedProject(t)
	cfg := testConfig(t, dir, config.OutputJSON)

	out, _, err := execute(t, NewDoctorCommand(), cfg)
	require.NoError(t, err)

	var doc DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "(defaults)", doc.Summary.Config)
	assert.Equal(t, 2, doc.Summary.Tables)
	assert.Equal(t, 2, doc.Summary.Files)
	assert.Equal(t, 2, doc.Summary.Models)
	assert.Equal(t, 1, doc.IssueCount)
	assert.Equal(t, 95, doc.Score)

	checks := map[string]HealthCheck{}
	for _, c := range doc.HealthChecks {
		checks[c.ID] = c
	}
	assert.Equal(t, statusPass, checks["schema"].Status)
	assert.Equal(t, statusPass, checks["cache"].Status)
	assert.Equal(t, statusPass, checks["SI01"].Status)
	assert.Equal(t, statusWarn, checks["SI03"].Status)
	require.Len(t, checks["SI03"].Details, 1)
	assert.Contains(t, checks["SI03"].Details[0], "article_id")
	assert.Len(t, doc.Recommendations, 1)
}

func TestDoctorCommand_MissingSchema(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, config.OutputMarkdown)

	out, _, err := execute(t, NewDoctorCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "**[ERROR]** schema")
	assert.Contains(t, out, "Point --schema")
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		models int
		want   int
	}{
		{name: "no checks", want: 100},
		{name: "all pass", checks: []HealthCheck{{Status: statusPass}}, models: 3, want: 100},
		{name: "warnings", checks: []HealthCheck{{Status: statusWarn, IssueCount: 2}}, models: 3, want: 90},
		{name: "errors count double", checks: []HealthCheck{{Status: statusError, IssueCount: 2}}, models: 20, want: 88},
		{name: "clamped", checks: []HealthCheck{{Status: statusError, IssueCount: 50}}, models: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks, tt.models))
		})
	}
}
