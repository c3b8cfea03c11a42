package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoRuns is returned when no fit has been recorded.
var ErrNoRuns = errors.New("no fit runs recorded")

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectRunFields = `id, created_at, dimensions, max_iter, seed, init,
	scores_fingerprint, nodes, iterations, converged, loss, duration_ms`

// RecordRun stores run, assigning an ID and timestamp when missing.
func (d *DB) RecordRun(run *FitRun) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.Exec(`
		INSERT INTO fit_runs (`+selectRunFields+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Dimensions, run.MaxIter,
		strconv.FormatUint(run.Seed, 10), run.Init, run.ScoresFingerprint, run.Nodes,
		run.Iterations, run.Converged, run.Loss, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("inserting fit run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the most recent fit run, or ErrNoRuns.
func (d *DB) LatestRun() (*FitRun, error) {
	row := d.db.QueryRow(`SELECT ` + selectRunFields + ` FROM fit_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	return run, err
}

// ListRuns returns fit runs, newest first. A limit <= 0 returns all.
func (d *DB) ListRuns(limit int) ([]FitRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.Query(`SELECT `+selectRunFields+` FROM fit_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing fit runs: %w", err)
	}
	defer rows.Close()

	var runs []FitRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// IsStale compares the latest fit with the current score fingerprint and
// parameters.
func (d *DB) IsStale(fingerprint string, params RunParams) (*Staleness, error) {
	latest, err := d.LatestRun()
	if errors.Is(err, ErrNoRuns) {
		return &Staleness{Stale: true, Reason: "no fit recorded"}, nil
	}
	if err != nil {
		return nil, err
	}

	st := &Staleness{Latest: latest}
	switch {
	case latest.ScoresFingerprint != fingerprint:
		st.Stale, st.Reason = true, "scores changed since last fit"
	case latest.Params() != params:
		st.Stale, st.Reason = true, "fit parameters changed since last fit"
	}
	return st, nil
}

// RebuildRunsFromJSONL clears the fit_runs table and reloads it from a run log.
func (d *DB) RebuildRunsFromJSONL(jsonlPath string) (int, error) {
	runs, err := ReadRuns(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading run log: %w", err)
	}

	if _, err := d.db.Exec("DELETE FROM fit_runs"); err != nil {
		return 0, fmt.Errorf("clearing fit_runs table: %w", err)
	}
	for i := range runs {
		if err := d.RecordRun(&runs[i]); err != nil {
			return 0, err
		}
	}
	return len(runs), nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*FitRun, error) {
	var run FitRun
	var createdAt, seed string
	err := s.Scan(&run.ID, &createdAt, &run.Dimensions, &run.MaxIter, &seed, &run.Init,
		&run.ScoresFingerprint, &run.Nodes, &run.Iterations, &run.Converged, &run.Loss, &run.DurationMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning fit run: %w", err)
	}

	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of run %s: %w", run.ID, err)
	}
	run.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing seed of run %s: %w", run.ID, err)
	}
	return &run, nil
}
