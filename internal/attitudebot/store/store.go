// Package store persists classification runs and their labels in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/classifier"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/runner"
	"github.com/RobinCoderZhao/attitudebot/pkg/storage"
)

// Schema is the SQLite schema for attitudebot.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    started_at   TEXT NOT NULL,
    finished_at  TEXT NOT NULL,
    input_dir    TEXT NOT NULL DEFAULT '',
    articles     INTEGER NOT NULL DEFAULT 0,
    attempted    INTEGER NOT NULL DEFAULT 0,
    labelled     INTEGER NOT NULL DEFAULT 0,
    failed       INTEGER NOT NULL DEFAULT 0,
    halted       INTEGER NOT NULL DEFAULT 0,
    final_model  TEXT NOT NULL DEFAULT '',
    cost         REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    date     TEXT NOT NULL,
    label    INTEGER NOT NULL CHECK (label IN (0, 1)),
    model    TEXT NOT NULL DEFAULT '',
    source   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

const dateLayout = "2006-01-02"

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: run not found")

// Run is one recorded invocation of the classifier.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	InputDir   string
	Articles   int
	Attempted  int
	Labelled   int
	Failed     int
	Halted     bool
	FinalModel string
	Cost       float64
}

// NewRun starts a run record with a fresh id.
func NewRun(inputDir string, started time.Time) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: started.UTC(),
		InputDir:  inputDir,
	}
}

// Complete fills the counters from a finished run.
func (r *Run) Complete(sum runner.Summary, finished time.Time) {
	r.FinishedAt = finished.UTC()
	r.Articles = sum.Articles
	r.Attempted = sum.Attempted
	r.Labelled = len(sum.Results)
	r.Failed = sum.Failed
	r.Halted = sum.Halted
	r.FinalModel = sum.FinalModel
	r.Cost = sum.Cost
}

// Store provides attitudebot persistence on the common storage layer.
type Store struct {
	db *storage.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := storage.Open(storage.Config{DSN: path})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run with its labels in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, results []runner.Result) error {
	if run.ID == "" {
		return errors.New("save run: empty id")
	}
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, started_at, finished_at, input_dir, articles, attempted, labelled, failed, halted, final_model, cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.StartedAt.Format(time.RFC3339), run.FinishedAt.Format(time.RFC3339),
			run.InputDir, run.Articles, run.Attempted, run.Labelled, run.Failed,
			run.Halted, run.FinalModel, run.Cost)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO results (run_id, date, label, model, source) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range results {
			if _, err := stmt.ExecContext(ctx, run.ID, r.Date.Format(dateLayout), int(r.Label), r.Model, r.Source); err != nil {
				return fmt.Errorf("insert result %s: %w", r.Date.Format(dateLayout), err)
			}
		}
		return nil
	})
}

const runColumns = `id, started_at, finished_at, input_dir, articles, attempted, labelled, failed, halted, final_model, cost`

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run by id, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// LatestRun returns the most recently started run, or ErrNotFound.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNotFound
	}
	return runs[0], nil
}

// Results returns the labels of a run in insertion order.
func (s *Store) Results(ctx context.Context, runID string) ([]runner.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, label, model, source FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []runner.Result
	for rows.Next() {
		var (
			date  string
			label int
			r     runner.Result
		)
		if err := rows.Scan(&date, &label, &r.Model, &r.Source); err != nil {
			return nil, err
		}
		if r.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse result date %q: %w", date, err)
		}
		r.Label = classifier.Label(label)
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run               Run
		started, finished string
	)
	if err := sc.Scan(&run.ID, &started, &finished, &run.InputDir, &run.Articles, &run.Attempted,
		&run.Labelled, &run.Failed, &run.Halted, &run.FinalModel, &run.Cost); err != nil {
		return Run{}, err
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
