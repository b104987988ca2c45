package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no matching row exists.
var ErrNotFound = errors.New("not found")

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, catalog_hash FROM runs ORDER BY seq DESC LIMIT 1
	`).Scan(&run.ID, &run.Seq, &run.CatalogHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// LookupQuery returns the query for (provider, operation, version) from
// the most recent run that compiled it.
func (s *Store) LookupQuery(ctx context.Context, provider, operation, version string) (Query, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT q.run_id, q.provider, q.identity, q.operation, q.version,
		       q.template_hash, q.query_hash, q.query, q.removed
		FROM queries q
		JOIN runs r ON r.id = q.run_id
		WHERE q.provider = ? AND q.operation = ? AND q.version = ?
		ORDER BY r.seq DESC
		LIMIT 1
	`, provider, operation, version)

	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Query{}, fmt.Errorf("lookup %s/%s@%s: %w", provider, operation, version, ErrNotFound)
	}
	if err != nil {
		return Query{}, fmt.Errorf("lookup %s/%s@%s: %w", provider, operation, version, err)
	}
	return q, nil
}

// ListQueries returns every query of a run in insertion order.
// Returns an empty slice (not nil) if the run has no queries.
func (s *Store) ListQueries(ctx context.Context, runID string) ([]Query, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, provider, identity, operation, version,
		       template_hash, query_hash, query, removed
		FROM queries
		WHERE run_id = ?
		ORDER BY rowid ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	queries := []Query{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("list queries: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return queries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuery(row scanner) (Query, error) {
	var (
		q       Query
		removed string
	)
	if err := row.Scan(
		&q.RunID, &q.Provider, &q.Identity, &q.Operation, &q.Version,
		&q.TemplateHash, &q.QueryHash, &q.Text, &removed,
	); err != nil {
		return Query{}, err
	}
	paths, err := unmarshalRemoved(removed)
	if err != nil {
		return Query{}, err
	}
	q.Removed = paths
	return q, nil
}
