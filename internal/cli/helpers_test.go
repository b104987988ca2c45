package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/roach88/gqlgate/internal/testutil"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(context.Background(), t, &syncBuffer{}, args...)
}

func executeContext(ctx context.Context, t *testing.T, out *syncBuffer, args ...string) (string, string, error) {
	t.Helper()
	errOut := &syncBuffer{}
	root := NewRootCommand()
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

const gitlabCatalog = `package providers

provider: gitlab: {
	identity: "gitlab*com"
	versions: ["13.6.1", "14.5.0"]
	operation: GetPullRequest: file: "templates/mergeRequest0.graphql"
	operation: GetViewer: template: """
		query GetViewer {
		  currentUser {
		    username
		    # @version >= 14.0.0
		    bot
		  }
		}
		"""
}
`

const brokenOperation = `package providers

provider: gitlab: operation: Broken: template: """
	query Broken {
	  a
	  # @version >= 1.0.0
	}
	"""
`

// writeCatalogDir writes the gitlab catalog plus extra files to a temp dir.
func writeCatalogDir(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"gitlab.cue":                      gitlabCatalog,
		"templates/mergeRequest0.graphql": testutil.MergeRequestTemplate,
	}
	for k, v := range extra {
		files[k] = v
	}
	testutil.WriteFiles(t, dir, files)
	return dir
}
