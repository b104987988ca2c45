package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gqlgate/internal/compiler"
	"github.com/roach88/gqlgate/internal/testutil"
	"github.com/roach88/gqlgate/internal/version"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"q.graphql": content})
	return filepath.Join(dir, "q.graphql")
}

func TestBuildCommand_Text(t *testing.T) {
	path := writeTemplate(t, testutil.MergeRequestTemplate)

	out, _, err := execute(t, "build", path, "--version", "14.5.0", "--operation", "GetPullRequest")
	require.NoError(t, err)

	want, err := compiler.Compile(version.MustParse("14.5.0"), testutil.MergeRequestTemplate, "GetPullRequest")
	require.NoError(t, err)
	assert.Equal(t, want.Query, out)
}

func TestBuildCommand_JSON(t *testing.T) {
	path := writeTemplate(t, testutil.MergeRequestTemplate)

	out, _, err := execute(t, "--format", "json", "build", path,
		"--version", "13.6.1", "--operation", "GetPullRequest", "--identity", "gitlab*com")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   BuildResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "gitlab*com", resp.Data.Identity)
	assert.Equal(t, "13.6.1", resp.Data.Version)
	assert.Contains(t, resp.Data.Query, "workInProgress")
	assert.NotContains(t, resp.Data.Query, "draft")
}

func TestBuildCommand_UnparseableVersionWarns(t *testing.T) {
	path := writeTemplate(t, testutil.MergeRequestTemplate)

	out, errOut, err := execute(t, "build", path, "--version", "nightly", "--operation", "GetPullRequest")
	require.NoError(t, err)
	assert.Contains(t, out, "workInProgress")
	assert.Contains(t, errOut, "level=WARN")
	assert.Contains(t, errOut, "version=nightly")
}

func TestBuildCommand_TemplateError(t *testing.T) {
	path := writeTemplate(t, "query Q {\n  a\n  # @version >= 1.0.0\n}\n")

	out, _, err := execute(t, "build", path, "--version", "1.0.0", "--operation", "Q")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E203]")
	assert.Contains(t, out, "Q:3:3")
}

func TestBuildCommand_MissingTemplate(t *testing.T) {
	_, _, err := execute(t, "build", "/nonexistent/q.graphql", "--version", "1.0.0", "--operation", "Q")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBuildCommand_OutputFile(t *testing.T) {
	path := writeTemplate(t, "query Q {\n  a\n  # @version >= 2.0.0\n  b\n}\n")
	outFile := filepath.Join(t.TempDir(), "out.graphql")

	out, _, err := execute(t, "build", path, "--version", "1.0.0", "--operation", "Q", "-o", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "query Q {\n  a\n}\n", string(data))
}

func TestBuildCommand_RequiresFlags(t *testing.T) {
	path := writeTemplate(t, "query Q { a }\n")

	_, _, err := execute(t, "build", path, "--operation", "Q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"version" not set`)
}
