// Package store keeps a SQLite history of judgement runs and their verdicts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// TimeFormat is the fixed-width RFC3339 format used for timestamps.
// Fixed width keeps lexicographic order equal to chronological order.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// Store wraps a SQLite database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite database in WAL mode and migrates it.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", url.PathEscape(path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(4)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id       TEXT PRIMARY KEY,
		video_id     TEXT NOT NULL,
		strategy     TEXT NOT NULL,
		threshold    REAL NOT NULL,
		started_at   TEXT NOT NULL,
		finished_at  TEXT NOT NULL,
		total        INTEGER NOT NULL,
		ok           INTEGER NOT NULL,
		ng           INTEGER NOT NULL,
		warn         INTEGER NOT NULL,
		unclassified INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS verdicts (
		run_id      TEXT NOT NULL REFERENCES runs(run_id),
		seq         INTEGER NOT NULL,
		event_id    TEXT NOT NULL,
		channel     TEXT,
		verdict     TEXT NOT NULL,
		reasons     TEXT,
		pattern_key TEXT,
		similarity  REAL,
		language    TEXT,
		length      INTEGER,
		limit_len   INTEGER,
		event_type  TEXT,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_video ON runs(video_id, started_at);
	CREATE INDEX IF NOT EXISTS idx_verdicts_event ON verdicts(event_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
