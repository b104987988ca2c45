package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestBeginRun_AssignsIDAndSeq(t *testing.T) {
	s := createTestStore(t, "run-1", "run-2")

	r1 := mustBeginRun(t, s, "hash-a")
	r2 := mustBeginRun(t, s, "hash-b")

	if r1.ID != "run-1" || r2.ID != "run-2" {
		t.Errorf("run ids = %q, %q; want run-1, run-2", r1.ID, r2.ID)
	}
	if r2.Seq <= r1.Seq {
		t.Errorf("seq not increasing: %d then %d", r1.Seq, r2.Seq)
	}

	latest, err := s.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if latest != r2 {
		t.Errorf("LatestRun() = %+v, want %+v", latest, r2)
	}
}

func TestBeginRun_DefaultUUIDv7(t *testing.T) {
	s := createTestStore(t)

	run := mustBeginRun(t, s, "hash")
	if len(run.ID) != 36 {
		t.Errorf("run id %q is not a hyphenated UUID", run.ID)
	}
}

func TestLatestRun_Empty(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LatestRun(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestRun() error = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLookupQuery(t *testing.T) {
	s := createTestStore(t, "run-1")
	ctx := context.Background()
	run := mustBeginRun(t, s, "hash")

	q := createTestQuery(run.ID, "GetPullRequest", "14.5.0", "query GetPullRequest { a }\n")
	q.Removed = []string{"GetPullRequest.workInProgress", "...on Foo"}
	mustSaveQuery(t, s, q)

	got, err := s.LookupQuery(ctx, "gitlab", "GetPullRequest", "14.5.0")
	if err != nil {
		t.Fatalf("LookupQuery() failed: %v", err)
	}
	if got.Text != q.Text {
		t.Errorf("Text = %q, want %q", got.Text, q.Text)
	}
	if got.QueryHash != QueryHash(q.Text) {
		t.Errorf("QueryHash = %q, want hash of text", got.QueryHash)
	}
	if got.Identity != "gitlab*com" || got.RunID != "run-1" {
		t.Errorf("unexpected row: %+v", got)
	}
	if !reflect.DeepEqual(got.Removed, q.Removed) {
		t.Errorf("Removed = %v, want %v", got.Removed, q.Removed)
	}
}

func TestLookupQuery_PrefersLatestRun(t *testing.T) {
	s := createTestStore(t, "run-1", "run-2")
	ctx := context.Background()

	r1 := mustBeginRun(t, s, "hash-1")
	mustSaveQuery(t, s, createTestQuery(r1.ID, "Q", "1.0.0", "old"))
	r2 := mustBeginRun(t, s, "hash-2")
	mustSaveQuery(t, s, createTestQuery(r2.ID, "Q", "1.0.0", "new"))

	got, err := s.LookupQuery(ctx, "gitlab", "Q", "1.0.0")
	if err != nil {
		t.Fatalf("LookupQuery() failed: %v", err)
	}
	if got.Text != "new" || got.RunID != "run-2" {
		t.Errorf("LookupQuery() = %q from %s, want new from run-2", got.Text, got.RunID)
	}
}

func TestLookupQuery_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LookupQuery(context.Background(), "gitlab", "Missing", "1.0.0")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupQuery() error = %v, want ErrNotFound", err)
	}
}

func TestSaveQuery_Idempotent(t *testing.T) {
	s := createTestStore(t, "run-1")
	run := mustBeginRun(t, s, "hash")

	mustSaveQuery(t, s, createTestQuery(run.ID, "Q", "1.0.0", "first"))
	mustSaveQuery(t, s, createTestQuery(run.ID, "Q", "1.0.0", "second"))

	queries, err := s.ListQueries(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ListQueries() failed: %v", err)
	}
	if len(queries) != 1 || queries[0].Text != "first" {
		t.Errorf("ListQueries() = %+v, want the first row only", queries)
	}
}

func TestSaveQuery_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	err := s.SaveQuery(context.Background(), createTestQuery("no-such-run", "Q", "1.0.0", "q"))
	if err == nil {
		t.Fatal("SaveQuery() accepted a query for a missing run")
	}
}

func TestListQueries_InsertionOrder(t *testing.T) {
	s := createTestStore(t, "run-1")
	run := mustBeginRun(t, s, "hash")

	for _, v := range []string{"13.6.1", "14.5.0", "10.0.0"} {
		mustSaveQuery(t, s, createTestQuery(run.ID, "Q", v, "q@"+v))
	}

	queries, err := s.ListQueries(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ListQueries() failed: %v", err)
	}
	var versions []string
	for _, q := range queries {
		versions = append(versions, q.Version)
	}
	want := []string{"13.6.1", "14.5.0", "10.0.0"}
	if !reflect.DeepEqual(versions, want) {
		t.Errorf("versions = %v, want %v", versions, want)
	}
}

func TestListQueries_EmptyRun(t *testing.T) {
	s := createTestStore(t, "run-1")
	run := mustBeginRun(t, s, "hash")

	queries, err := s.ListQueries(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ListQueries() failed: %v", err)
	}
	if queries == nil || len(queries) != 0 {
		t.Errorf("ListQueries() = %#v, want empty non-nil slice", queries)
	}
}
