// Package ledger records run statistics and extraction origins in SQLite.
// The archive's files are the source of truth for content; the ledger only
// answers "what happened on which run" questions that files cannot.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Schema is the ledger's SQLite schema.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    date_key    TEXT NOT NULL,
    platform    TEXT NOT NULL,
    listed      INTEGER NOT NULL DEFAULT 0,
    recent      INTEGER NOT NULL DEFAULT 0,
    extracted   INTEGER NOT NULL DEFAULT 0,
    summarized  INTEGER NOT NULL DEFAULT 0,
    started_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS extractions (
    date_key   TEXT NOT NULL,
    item_id    TEXT NOT NULL,
    origin     TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (date_key, item_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date_key);
`

// RunStats summarizes one platform's pass over one analysis date.
type RunStats struct {
	DateKey    string
	Platform   string
	Listed     int
	Recent     int
	Extracted  int
	Summarized int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Ledger wraps the SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open creates the ledger database and initializes the schema.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// RecordExtraction stores which tier produced an item. Re-recording the
// same item is a no-op: the first origin stands.
func (l *Ledger) RecordExtraction(ctx context.Context, dateKey, itemID, origin string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO extractions (date_key, item_id, origin) VALUES (?, ?, ?)`,
		dateKey, itemID, origin)
	if err != nil {
		return fmt.Errorf("record extraction: %w", err)
	}
	return nil
}

// ExtractionOrigin returns the recorded origin for an item, or "" when the
// item was never recorded.
func (l *Ledger) ExtractionOrigin(ctx context.Context, dateKey, itemID string) (string, error) {
	var origin string
	err := l.db.QueryRowContext(ctx,
		`SELECT origin FROM extractions WHERE date_key = ? AND item_id = ?`,
		dateKey, itemID).Scan(&origin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query extraction origin: %w", err)
	}
	return origin, nil
}

// RecordRun appends one platform's run statistics.
func (l *Ledger) RecordRun(ctx context.Context, stats RunStats) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (date_key, platform, listed, recent, extracted, summarized, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.DateKey, stats.Platform, stats.Listed, stats.Recent,
		stats.Extracted, stats.Summarized, stats.StartedAt, stats.FinishedAt)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest run records, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]RunStats, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT date_key, platform, listed, recent, extracted, summarized, started_at, finished_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunStats
	for rows.Next() {
		var s RunStats
		if err := rows.Scan(&s.DateKey, &s.Platform, &s.Listed, &s.Recent,
			&s.Extracted, &s.Summarized, &s.StartedAt, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
