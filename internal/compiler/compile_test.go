package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gqlgate/internal/testutil"
	"github.com/roach88/gqlgate/internal/version"
)

func compileAt(t *testing.T, v, src string) *Result {
	t.Helper()
	res, err := Compile(version.MustParse(v), src, "Test")
	require.NoError(t, err)
	return res
}

func TestCompileMergeRequestGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, v := range []string{"13.6.1", "14.5.0"} {
		t.Run(v, func(t *testing.T) {
			res, err := Compile(version.MustParse(v), testutil.MergeRequestTemplate, testutil.MergeRequestOperation)
			require.NoError(t, err)
			g.Assert(t, testutil.MergeRequestOperation+"-"+v, []byte(res.Query))
		})
	}
}

func TestCompileDraftBoundary(t *testing.T) {
	tests := []struct {
		version string
		draft   bool
	}{
		{"13.6.1", false},
		{"13.9.9", false},
		{"14.0.0", true},
		{"14.0.1", true},
		{"14.5.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			res := compileAt(t, tt.version, testutil.MergeRequestTemplate)
			assert.Equal(t, tt.draft, strings.Contains(res.Query, "draft"))
			assert.Equal(t, !tt.draft, strings.Contains(res.Query, "workInProgress"))
			assert.NotContains(t, res.Query, "@version")
		})
	}
}

func TestCompileReportsRemovedNodes(t *testing.T) {
	res, err := Compile(version.MustParse("13.6.1"), testutil.MergeRequestTemplate, testutil.MergeRequestOperation)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GetPullRequest.project.squashReadOnly",
		"GetPullRequest.project.mergeRequest.draft",
		"GetPullRequest.project.mergeRequest.approvalsRequired",
		"GetPullRequest.project.mergeRequest....reviewerFields",
		"GetPullRequest.project.mergeRequest.discussions.nodes.resolvable",
		"fragment reviewerFields",
	}, res.Removed)
	assert.Equal(t, 6, res.Gates)
	assert.Equal(t, "13.6.1", res.Version.String())
}

func TestCompileNumericOrdering(t *testing.T) {
	src := "query {\n  a\n  # @version >= 10.0.0\n  b\n}\n"

	assert.NotContains(t, compileAt(t, "9.0.0", src).Query, "b")
	assert.Contains(t, compileAt(t, "10.0.0", src).Query, "b")
}

func TestCompilePruning(t *testing.T) {
	tests := []struct {
		name string
		src  string
		at   string
		want string
	}{
		{
			name: "unused variable goes with its field",
			src: `query Q($a: ID!, $b: Int) {
  x(id: $a)
  # @version >= 14.0.0
  y(n: $b)
}
`,
			at: "13.0.0",
			want: `query Q($a: ID!) {
  x(id: $a)
}
`,
		},
		{
			name: "gate comment stripped when kept",
			src: `query Q($a: ID!, $b: Int) {
  x(id: $a)
  # @version >= 14.0.0
  y(n: $b)
}
`,
			at: "14.0.0",
			want: `query Q($a: ID!, $b: Int) {
  x(id: $a)
  y(n: $b)
}
`,
		},
		{
			name: "empty variable list removed",
			src: `query Q($b: Int) {
  x
  # @version >= 14.0.0
  y(n: $b)
}
`,
			at: "13.0.0",
			want: `query Q {
  x
}
`,
		},
		{
			name: "gated variable definition",
			src: `query Q(
  $a: ID!
  # @version >= 14.0.0
  $b: Boolean = false
) {
  x(id: $a)
  # @version >= 14.0.0
  y(flag: $b)
}
`,
			at: "13.0.0",
			want: `query Q(
  $a: ID!
) {
  x(id: $a)
}
`,
		},
		{
			name: "emptied parent field removed",
			src: `query {
  project {
    # @version >= 14.0.0
    draft
  }
  id
}
`,
			at: "13.0.0",
			want: `query {
  id
}
`,
		},
		{
			name: "gated fragment definition removes spreads",
			src: `query Q {
  a
  ...F
}

# @version >= 14.0.0
fragment F on T {
  b
}
`,
			at: "13.0.0",
			want: `query Q {
  a
}

`,
		},
		{
			name: "contradictory gates exclude",
			src: `query {
  a
  # @version >= 14.0.0 < 13.0.0
  b
}
`,
			at: "14.5.0",
			want: `query {
  a
}
`,
		},
		{
			name: "gated operation",
			src: `# @version >= 14.0.0
query New { a }
query Old { b }
`,
			at: "13.0.0",
			want: `query Old { b }
`,
		},
		{
			name: "trailing comma is dropped with its field",
			src: `query {
  node {
    id, name,
    # @version >= 14.0.0
    draft,
    title
  }
}
`,
			at: "13.0.0",
			want: `query {
  node {
    id, name,
    title
  }
}
`,
		},
		{
			name: "comma before closing brace is dropped",
			src: `query {
  node {
    id,
    # @version >= 14.0.0
    draft
  }
}
`,
			at: "13.0.0",
			want: `query {
  node {
    id
  }
}
`,
		},
		{
			name: "inline fragment emptied",
			src: `query {
  node {
    id
    ... on MergeRequest {
      # @version >= 14.0.0
      draft
    }
  }
}
`,
			at: "13.0.0",
			want: `query {
  node {
    id
  }
}
`,
		},
		{
			name: "orphaned fragment chain removed",
			src: `query Q {
  a
  # @version >= 14.0.0
  ...Outer
}

fragment Outer on T {
  ...Inner
}

fragment Inner on T {
  c
}
`,
			at: "13.0.0",
			want: `query Q {
  a
}

`,
		},
		{
			name: "mid-line removal leaves a single space",
			src: `query {
  node { a  # @version >= 14.0.0
  b }
}
`,
			at: "13.0.0",
			want: `query {
  node { a }
}
`,
		},
		{
			name: "ordinary comments survive",
			src: `# fetch a node
query {
  # identifier
  id
  # @version >= 14.0.0
  draft # new in 14
}
`,
			at: "13.0.0",
			want: `# fetch a node
query {
  # identifier
  id
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compileAt(t, tt.at, tt.src)
			assert.Equal(t, tt.want, res.Query)
		})
	}
}

func TestCompileEmptyOperationFails(t *testing.T) {
	src := "query Q {\n  # @version >= 14.0.0\n  a\n}\n"

	_, err := Compile(version.MustParse("13.0.0"), src, "Q")
	require.Error(t, err)

	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, ErrEmptyOperation, terr.Code)
	assert.Contains(t, terr.Message, "13.0.0")

	_, err = Compile(version.MustParse("14.0.0"), src, "Q")
	assert.NoError(t, err)
}

func TestCompileNoOperationLeft(t *testing.T) {
	src := "# @version >= 14.0.0\nquery Q { a }\n"

	_, err := Compile(version.MustParse("13.0.0"), src, "Q")
	require.Error(t, err)

	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, ErrNoOperations, terr.Code)
}

func TestCompileGatedVariableStillUsed(t *testing.T) {
	src := "query Q(\n  # @version >= 14.0.0\n  $b: ID\n) { f g(b: $b) }\n"

	_, err := Compile(version.MustParse("13.0.0"), src, "Q")
	require.Error(t, err)

	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, ErrUndefinedVar, terr.Code)
	assert.Equal(t, 3, terr.Pos.Line)
	assert.Contains(t, terr.Message, "$b")

	res := compileAt(t, "14.0.0", src)
	assert.Equal(t, "query Q(\n  $b: ID\n) { f g(b: $b) }\n", res.Query)
}

func TestCompileGatedVariableUsedOnlyByGatedField(t *testing.T) {
	src := "query Q(\n  # @version >= 14.0.0\n  $b: ID\n) {\n  f\n  # @version >= 14.0.0\n  g(b: $b)\n}\n"

	res := compileAt(t, "13.0.0", src)
	assert.Equal(t, "query Q {\n  f\n}\n", res.Query)
}

func TestCompileIsDeterministic(t *testing.T) {
	a := compileAt(t, "14.5.0", testutil.MergeRequestTemplate)
	b := compileAt(t, "v14.5", testutil.MergeRequestTemplate)
	c := compileAt(t, "14.5.0-ee", testutil.MergeRequestTemplate)

	assert.Equal(t, a.Query, b.Query)
	assert.Equal(t, a.Query, c.Query)
}

func stripGateLines(src string) string {
	var out []string
	for _, line := range strings.SplitAfter(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "# @version") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "")
}

func TestStripRemovesOnlyGates(t *testing.T) {
	stripped, err := Strip(testutil.MergeRequestOperation, testutil.MergeRequestTemplate)
	require.NoError(t, err)

	assert.Equal(t, stripGateLines(testutil.MergeRequestTemplate), stripped)
	assert.Contains(t, stripped, "draft")
	assert.Contains(t, stripped, "workInProgress")
}

func TestCompileWithAllGatesHeldEqualsStrip(t *testing.T) {
	src := `query Q($iid: String!) {
  # @version >= 13.0.0
  mergeRequest(iid: $iid) {
    id
    # @version >= 14.0.0
    draft
    # @version >= 13.8.0
    ...approvals
  }
}

fragment approvals on MergeRequest {
  approvalsRequired
}
`
	stripped, err := Strip("Q", src)
	require.NoError(t, err)

	for _, v := range []string{"14.0.0", "15.3.2", "99.0.0"} {
		assert.Equal(t, stripped, compileAt(t, v, src).Query, v)
	}
}

func TestCompileRemovalIsSubset(t *testing.T) {
	full, err := Strip(testutil.MergeRequestOperation, testutil.MergeRequestTemplate)
	require.NoError(t, err)

	for _, v := range []string{"0.0.0", "13.6.1", "13.9.0", "14.0.0", "16.2.0"} {
		res := compileAt(t, v, testutil.MergeRequestTemplate)
		for _, line := range strings.Split(res.Query, "\n") {
			assert.Contains(t, full, line, "line %q at %s is not in the template", line, v)
		}
	}
}
