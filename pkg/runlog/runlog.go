// Package runlog records processing runs in a SQLite database under
// the project's .calproj/ state directory. Each run row summarizes
// one process invocation; run_files rows carry per-file outcomes.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaDDL defines the run-log schema. Idempotent; executed on
// every Open.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    started_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    total       INTEGER NOT NULL,
    succeeded   INTEGER NOT NULL,
    failed      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_files (
    run_id      TEXT NOT NULL REFERENCES runs(id),
    path        TEXT NOT NULL,
    output      TEXT,
    status      TEXT NOT NULL CHECK (status IN ('ok', 'failed')),
    error       TEXT,
    duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_files_run_id ON run_files(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run summarizes one processing invocation.
type Run struct {
	ID         string
	Source     string // the path or project that was processed
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// FileRecord is one file's outcome within a run.
type FileRecord struct {
	Path       string
	Output     string
	Status     string // "ok" or "failed"
	Error      string
	DurationMS int64
}

// Log is an open run-log database.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the run log at path. Parent
// directories are created.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	if _, err := db.Exec(SchemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init run log schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record writes a run and its per-file outcomes in one transaction.
func (l *Log) Record(ctx context.Context, run Run, files []FileRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run log tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, started_at, finished_at, total, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Total, run.Succeeded, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for _, f := range files {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_files (run_id, path, output, status, error, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, f.Path, f.Output, f.Status, f.Error, f.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("insert run file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run log tx: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, source, started_at, finished_at, total, succeeded, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Total, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Files returns the per-file outcomes of one run in insertion order.
func (l *Log) Files(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT path, output, status, error, duration_ms
		 FROM run_files WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Output, &f.Status, &f.Error, &f.DurationMS); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
