// Package history records index run summaries in PostgreSQL so that the stats
// command can show when a store was last built and what went into it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_runs (
    id             BIGSERIAL PRIMARY KEY,
    store_dir      TEXT        NOT NULL,
    roots          TEXT[]      NOT NULL,
    documents      INTEGER     NOT NULL,
    skipped        INTEGER     NOT NULL,
    postings       BIGINT      NOT NULL,
    write_warnings INTEGER     NOT NULL,
    keys           INTEGER     NOT NULL,
    started_at     TIMESTAMPTZ NOT NULL,
    finished_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS index_runs_store_dir_idx ON index_runs (store_dir, finished_at DESC);
`

// Run is one recorded index run.
type Run struct {
	ID       int64
	StoreDir string
	indexer.Summary
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "run-history"),
	}
}

// EnsureSchema creates the index_runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index_runs schema: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, storeDir string, sum indexer.Summary) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO index_runs
		    (store_dir, roots, documents, skipped, postings, write_warnings, keys, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		indexer.CanonicalDir(storeDir), pq.Array(sum.Roots), sum.Documents, sum.Skipped, sum.Postings,
		sum.WriteWarnings, sum.Keys, sum.StartedAt, sum.FinishedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording index run: %w", err)
	}
	s.logger.Info("index run recorded", "id", id, "keys", sum.Keys)
	return id, nil
}

// Recent returns up to limit runs for storeDir, newest first.
func (s *Store) Recent(ctx context.Context, storeDir string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, store_dir, roots, documents, skipped, postings, write_warnings, keys, started_at, finished_at
		   FROM index_runs
		  WHERE store_dir = $1
		  ORDER BY finished_at DESC
		  LIMIT $2`,
		indexer.CanonicalDir(storeDir), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing index runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.StoreDir, pq.Array(&r.Roots), &r.Documents, &r.Skipped, &r.Postings,
			&r.WriteWarnings, &r.Keys, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning index run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
