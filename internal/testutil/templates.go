package testutil

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"
)

// MergeRequestTemplate is the GitLab GetPullRequest query template. Its
// `draft` field is gated at >= 14.0.0 and `workInProgress` at < 14.0.0.
//
//go:embed testdata/mergeRequest0.graphql
var MergeRequestTemplate string

// MergeRequestOperation is the operation name of MergeRequestTemplate.
const MergeRequestOperation = "GetPullRequest"

// WriteFiles writes files (relative path -> content) under dir, creating
// parent directories, and fails the test on error.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
}
