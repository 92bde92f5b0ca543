package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/internalerr"
	"github.com/cognicore/simhist/pkg/simhist/sampling"
	"github.com/cognicore/simhist/pkg/simhist/store"
)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas consistent and serializes writers
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	steps INTEGER NOT NULL,
	chunk_size INTEGER NOT NULL,
	rounds INTEGER NOT NULL,
	workers INTEGER NOT NULL,
	seed INTEGER,
	self_mode TEXT NOT NULL,
	width INTEGER NOT NULL,
	docs_a INTEGER NOT NULL,
	docs_b INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_bins (
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	bin INTEGER NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, kind, bin),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts a run and its histogram bins in one transaction
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.ID == "" {
		r.ID = store.NewID(r.CreatedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var seed sql.NullInt64
	if r.Seed != nil {
		// stored bit for bit; SQLite integers are signed
		seed = sql.NullInt64{Int64: int64(*r.Seed), Valid: true}
	}

	const runStmt = `
INSERT INTO runs (id, name, created_at, steps, chunk_size, rounds, workers, seed, self_mode, width, docs_a, docs_b)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = tx.ExecContext(ctx, runStmt,
		r.ID,
		r.Name,
		r.CreatedAt.UTC().Format(timeLayout),
		r.Steps,
		r.ChunkSize,
		r.Rounds,
		r.Workers,
		seed,
		r.SelfMode,
		r.Width,
		r.DocsA,
		r.DocsB,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	binStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_bins (run_id, kind, bin, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer binStmt.Close()

	hists := r.Histograms()
	for _, k := range sampling.Kinds {
		kind := k.String()
		for bin, count := range hists[kind] {
			if _, err := binStmt.ExecContext(ctx, r.ID, kind, bin, count); err != nil {
				return "", fmt.Errorf("insert %s bin %d: %w", kind, bin, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return r.ID, nil
}

// GetRun loads a run with its histograms
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, err
	}
	if err := s.loadBins(ctx, &r); err != nil {
		return store.Run{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	query := selectRuns + ` ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range runs {
		if err := s.loadBins(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

const selectRuns = `
SELECT id, name, created_at, steps, chunk_size, rounds, workers, seed, self_mode, width, docs_a, docs_b
FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r       store.Run
		created string
		seed    sql.NullInt64
	)
	err := sc.Scan(
		&r.ID,
		&r.Name,
		&created,
		&r.Steps,
		&r.ChunkSize,
		&r.Rounds,
		&r.Workers,
		&seed,
		&r.SelfMode,
		&r.Width,
		&r.DocsA,
		&r.DocsB,
	)
	if err != nil {
		return store.Run{}, err
	}
	if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return store.Run{}, fmt.Errorf("run %s: parse created_at: %w", r.ID, err)
	}
	if seed.Valid {
		v := uint64(seed.Int64)
		r.Seed = &v
	}
	return r, nil
}

func (s *sqliteStore) loadBins(ctx context.Context, r *store.Run) error {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, bin, count FROM run_bins WHERE run_id = ? ORDER BY kind, bin`, r.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	hists := make(map[string]histogram.Histogram)
	for rows.Next() {
		var (
			kind  string
			bin   int
			count int64
		)
		if err := rows.Scan(&kind, &bin, &count); err != nil {
			return err
		}
		h := hists[kind]
		for len(h) <= bin {
			h = append(h, 0)
		}
		h[bin] = count
		hists[kind] = h
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for kind, h := range hists {
		if !r.SetHistogram(kind, h) {
			return fmt.Errorf("run %s: unknown histogram kind %q: %w", r.ID, kind, internalerr.ErrInvalidInput)
		}
	}
	return nil
}
