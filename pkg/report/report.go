// pkg/report/report.go
// Package report keeps a history of relation checks in a SQLite database:
// one row per run with its summary counts and one row per finding.
//
// cgo builds use github.com/mattn/go-sqlite3; builds without cgo use the
// pure Go modernc.org/sqlite driver.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"idxcheck/pkg/check"
	"idxcheck/pkg/page"
)

var ErrRunNotFound = errors.New("run not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	relation    TEXT    NOT NULL,
	started_at  TEXT    NOT NULL,
	finished_at TEXT    NOT NULL,
	pages       INTEGER NOT NULL,
	corrupted   INTEGER NOT NULL,
	unreadable  INTEGER NOT NULL,
	errors      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS findings (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	block     INTEGER NOT NULL,
	item      INTEGER NOT NULL,
	attribute TEXT    NOT NULL,
	kind      TEXT    NOT NULL,
	severity  INTEGER NOT NULL,
	message   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS findings_run ON findings(run_id, block, item);
`

// Run is the summary row of one relation check.
type Run struct {
	ID         int64
	Relation   string
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	Corrupted  int
	Unreadable int
	Errors     int
}

// Store is a report database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the report database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open report db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the result of checking relation and returns the run id.
// The run and its findings are written in one transaction.
func (s *Store) SaveRun(ctx context.Context, relation string, startedAt time.Time, res *check.RelationResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx,
		`INSERT INTO runs (relation, started_at, finished_at, pages, corrupted, unreadable, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		relation,
		startedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		len(res.Pages), res.Corrupted(), res.Unreadable(), res.Errors(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (run_id, block, item, attribute, kind, severity, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, f := range res.Findings() {
		if _, err := stmt.ExecContext(ctx, id, int64(f.Block), int64(f.Item), f.Attribute,
			f.Kind.String(), int(f.Severity), f.Message); err != nil {
			return 0, fmt.Errorf("insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Runs returns every stored run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, relation, started_at, finished_at, pages, corrupted, unreadable, errors
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
		)
		if err := rows.Scan(&run.ID, &run.Relation, &started, &finished,
			&run.Pages, &run.Corrupted, &run.Unreadable, &run.Errors); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %d: started_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("run %d: finished_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Findings returns the findings of a run in block and slot order.
func (s *Store) Findings(ctx context.Context, runID int64) ([]check.Finding, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT block, item, attribute, kind, severity, message
		 FROM findings WHERE run_id = ? ORDER BY block, item, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []check.Finding
	for rows.Next() {
		var (
			block, item, severity int64
			kind                  string
			f                     check.Finding
		)
		if err := rows.Scan(&block, &item, &f.Attribute, &kind, &severity, &f.Message); err != nil {
			return nil, err
		}
		if f.Kind, err = check.ParseKind(kind); err != nil {
			return nil, err
		}
		f.Block = page.BlockNumber(block)
		f.Item = page.OffsetNumber(item)
		f.Severity = check.Severity(severity)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
