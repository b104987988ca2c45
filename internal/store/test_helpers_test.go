package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/gqlgate/internal/testutil"
)

// createTestStore creates a new store with fixed run ids for testing.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	var opts []Option
	if len(ids) > 0 {
		opts = append(opts, WithIDGenerator(testutil.NewFixedIDGenerator(ids...)))
	}
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestQuery creates a query row with minimal required fields.
func createTestQuery(runID, operation, version, text string) Query {
	return Query{
		RunID:        runID,
		Provider:     "gitlab",
		Identity:     "gitlab*com",
		Operation:    operation,
		Version:      version,
		TemplateHash: TemplateHash("template of " + operation),
		Text:         text,
	}
}

func mustBeginRun(t *testing.T, s *Store, catalogHash string) Run {
	t.Helper()
	run, err := s.BeginRun(context.Background(), catalogHash)
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return run
}

func mustSaveQuery(t *testing.T, s *Store, q Query) {
	t.Helper()
	if err := s.SaveQuery(context.Background(), q); err != nil {
		t.Fatalf("SaveQuery() failed: %v", err)
	}
}
