// Package store keeps a history of runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/go-scripts/wordstat/pkg/common"
)

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    gateway TEXT NOT NULL,
    authorized BOOLEAN NOT NULL DEFAULT 0,
    interrupted BOOLEAN NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',     -- why the run stopped early
    query_count INTEGER NOT NULL,
    found_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    query TEXT NOT NULL,
    loose INTEGER,          -- NULL when not found
    exact INTEGER,
    exact_forced INTEGER,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_results_query ON results(query);
`

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the run history database.
type Store struct {
	*sql.DB
	path string
}

// Run describes one finished or interrupted batch.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Gateway     string
	Authorized  bool
	Interrupted bool
	// Error is set when the run was aborted by a failure.
	Error       string
	Queries     int
	Found       int
}

func openDB(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database only exists on its one connection.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: sqlDB, path: path}
	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// InitSchema creates missing tables.
func (s *Store) InitSchema() error {
	_, err := s.Exec(schema)
	return err
}

// Path is the database file.
func (s *Store) Path() string { return s.path }

// SaveRun stores run and its table in one transaction and returns the run
// id. An empty run.ID gets a fresh one.
func (s *Store) SaveRun(ctx context.Context, run Run, table common.ResultTable) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	run.Queries = len(table)
	run.Found = table.Found()

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, gateway, authorized, interrupted, error, query_count, found_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Gateway,
		run.Authorized,
		run.Interrupted,
		run.Error,
		run.Queries,
		run.Found,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, position, query, loose, exact, exact_forced)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, res := range table {
		_, err := stmt.ExecContext(ctx, run.ID, i, res.Query,
			nullable(res.Loose), nullable(res.Exact), nullable(res.ExactForced))
		if err != nil {
			return "", fmt.Errorf("failed to insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// Runs lists the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, started_at, finished_at, gateway, authorized, interrupted, error, query_count, found_count
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Gateway, &r.Authorized, &r.Interrupted, &r.Error, &r.Queries, &r.Found); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("bad started_at for run %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("bad finished_at for run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ErrRunNotFound is returned by Results for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Results returns the table of one run in input order.
func (s *Store) Results(ctx context.Context, runID string) (common.ResultTable, error) {
	var exists int
	err := s.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}

	rows, err := s.QueryContext(ctx, `
		SELECT query, loose, exact, exact_forced
		FROM results
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	table := common.ResultTable{}
	for rows.Next() {
		var res common.QueryResult
		var loose, exact, forced sql.NullInt64
		if err := rows.Scan(&res.Query, &loose, &exact, &forced); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Loose = fromNullable(loose)
		res.Exact = fromNullable(exact)
		res.ExactForced = fromNullable(forced)
		table = append(table, res)
	}
	return table, rows.Err()
}

func nullable(f common.Frequency) sql.NullInt64 {
	v, ok := f.Get()
	return sql.NullInt64{Int64: int64(v), Valid: ok}
}

func fromNullable(n sql.NullInt64) common.Frequency {
	if !n.Valid || n.Int64 < 0 {
		return common.None()
	}
	return common.Some(uint64(n.Int64))
}
