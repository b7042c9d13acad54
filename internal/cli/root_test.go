package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemais/internal/cli/commands"
	"github.com/leapstack-labs/schemais/internal/cli/output"
	clitest "github.com/leapstack-labs/schemais/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"check", "fix", "watch", "rules", "doctor", "init", "version", "completion"} {
		assert.Contains(t, names, want)
	}
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)
}

func TestRootCmd_FlagsReachCommands(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{
		"app/models/comment.rb": clitest.CommentModel,
	})
	moved := filepath.Join(dir, "db", "other_schema.rb")
	require.NoError(t, os.Rename(filepath.Join(dir, "db", "schema.rb"), moved))

	out, _, err := run(t,
		"check", filepath.Join(dir, "app/models"),
		"--schema", moved,
		"--no-cache",
		"--disable", "schema.missing_column",
		"-o", "json",
	)
	require.NoError(t, err)

	var doc output.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 1, doc.Summary.Files)
	assert.Zero(t, doc.Summary.Issues)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{
		"app/models/comment.rb": clitest.CommentModel,
		".schemais.yaml":        "no_cache: true\nlint:\n  severity:\n    SI03: error\n",
	})

	out, _, err := run(t, "--config", filepath.Join(dir, ".schemais.yaml"), "-o", "json", "check")
	require.ErrorIs(t, err, commands.ErrIssuesFound)

	var doc output.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 1, doc.Summary.Errors)
	_, statErr := os.Stat(filepath.Join(dir, ".schemais"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{".schemais.yaml": "output: fancy\n"})

	_, _, err := run(t, "--config", filepath.Join(dir, ".schemais.yaml"), "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCmd_Completion(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "schemais")
}

func TestRootCmd_Version(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "schemais "+Version+"\n", out)
}
