package store

import (
	"context"
	"fmt"
)

// Run is one compilation of a catalog.
type Run struct {
	ID          string
	Seq         int64
	CatalogHash string
}

// Query is one compiled query row.
type Query struct {
	RunID        string
	Provider     string
	Identity     string
	Operation    string
	Version      string // normalized "major.minor.patch"
	TemplateHash string
	QueryHash    string
	Text         string
	Removed      []string
}

// BeginRun records a new run and returns it.
func (s *Store) BeginRun(ctx context.Context, catalogHash string) (Run, error) {
	run := Run{ID: s.ids.NewID(), CatalogHash: catalogHash}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, catalog_hash) VALUES (?, ?)
	`, run.ID, run.CatalogHash)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	if run.Seq, err = res.LastInsertId(); err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// SaveQuery inserts a compiled query. QueryHash is computed from Text.
// Uses ON CONFLICT DO NOTHING for idempotency: saving the same triple
// twice within a run keeps the first row.
//
// Note: the run referenced by RunID must exist (foreign key constraint).
func (s *Store) SaveQuery(ctx context.Context, q Query) error {
	removed, err := marshalRemoved(q.Removed)
	if err != nil {
		return fmt.Errorf("save query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queries
		(run_id, provider, identity, operation, version, template_hash, query_hash, query, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		q.RunID,
		q.Provider,
		q.Identity,
		q.Operation,
		q.Version,
		q.TemplateHash,
		QueryHash(q.Text),
		q.Text,
		removed,
	)
	if err != nil {
		return fmt.Errorf("save query: %w", err)
	}
	return nil
}
