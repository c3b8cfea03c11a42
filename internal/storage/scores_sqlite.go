package storage

import (
	"database/sql"
	"fmt"

	"github.com/tigerlily/tigerlily/internal/table"
)

// ScoreStats summarizes the cached score table.
type ScoreStats struct {
	Rows     int     `json:"rows"`
	Sources  int     `json:"sources"`
	Targets  int     `json:"targets"`
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
}

// ReplaceScores clears the score cache and stores scores in input order.
func (d *DB) ReplaceScores(scores []table.ScoreRecord) (int, error) {
	if err := table.ValidateScores(scores); err != nil {
		return 0, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pagerank_scores"); err != nil {
		return 0, fmt.Errorf("clearing pagerank_scores table: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO pagerank_scores (seq, node_1, node_2, score) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing scores insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range scores {
		if _, err := stmt.Exec(i, s.Node1, s.Node2, s.Score); err != nil {
			return 0, fmt.Errorf("inserting score %d (%s, %s): %w", i, s.Node1, s.Node2, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing scores: %w", err)
	}
	return len(scores), nil
}

// ListScores returns every cached score in the order it was stored.
func (d *DB) ListScores() ([]table.ScoreRecord, error) {
	rows, err := d.db.Query(`SELECT node_1, node_2, score FROM pagerank_scores ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	defer rows.Close()

	var scores []table.ScoreRecord
	for rows.Next() {
		var s table.ScoreRecord
		if err := rows.Scan(&s.Node1, &s.Node2, &s.Score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// ScoresForSource returns the cached scores whose node_1 is source.
func (d *DB) ScoresForSource(source string) ([]table.ScoreRecord, error) {
	rows, err := d.db.Query(`SELECT node_1, node_2, score FROM pagerank_scores WHERE node_1 = ? ORDER BY seq`, source)
	if err != nil {
		return nil, fmt.Errorf("listing scores for %s: %w", source, err)
	}
	defer rows.Close()

	var scores []table.ScoreRecord
	for rows.Next() {
		var s table.ScoreRecord
		if err := rows.Scan(&s.Node1, &s.Node2, &s.Score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// CountScores returns the number of cached scores.
func (d *DB) CountScores() (int, error) {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM pagerank_scores").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting scores: %w", err)
	}
	return count, nil
}

// ScoreStats summarizes the cached scores.
func (d *DB) ScoreStats() (*ScoreStats, error) {
	var stats ScoreStats
	var minScore, maxScore sql.NullFloat64
	err := d.db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT node_1), COUNT(DISTINCT node_2), MIN(score), MAX(score)
		FROM pagerank_scores
	`).Scan(&stats.Rows, &stats.Sources, &stats.Targets, &minScore, &maxScore)
	if err != nil {
		return nil, fmt.Errorf("summarizing scores: %w", err)
	}
	stats.MinScore = minScore.Float64
	stats.MaxScore = maxScore.Float64
	return &stats, nil
}
