package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Cached personalized PageRank scores; seq keeps input order
		CREATE TABLE IF NOT EXISTS pagerank_scores (
			seq INTEGER PRIMARY KEY,
			node_1 TEXT NOT NULL,
			node_2 TEXT NOT NULL,
			score REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scores_node_1 ON pagerank_scores(node_1);

		-- One row per embedding fit, for staleness detection
		CREATE TABLE IF NOT EXISTS fit_runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			dimensions INTEGER NOT NULL,
			max_iter INTEGER NOT NULL,
			seed TEXT NOT NULL,
			init TEXT NOT NULL,
			scores_fingerprint TEXT NOT NULL,
			nodes INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			converged INTEGER NOT NULL,
			loss REAL NOT NULL,
			duration_ms INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_fit_runs_created ON fit_runs(created_at);
	`

	_, err := db.Exec(schema)
	return err
}
