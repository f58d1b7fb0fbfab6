// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrJournalClosed is returned by operations on a closed journal.
var ErrJournalClosed = errors.New("turn journal closed")

// =============================================================================
// JOURNAL
// =============================================================================

// Journal is a Recorder that appends turn statistics to SQLite.
type Journal struct {
	db        *sql.DB
	path      string
	sessionID string
}

// OpenJournal opens (creating if needed) the journal at path.
// sessionID is stamped on every recorded turn that has none.
func OpenJournal(path, sessionID string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=2000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	// The journal may hold model names and error text; keep it private.
	_ = os.Chmod(path, 0600)

	return &Journal{db: db, path: path, sessionID: sessionID}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// Record implements Recorder.
func (j *Journal) Record(ctx context.Context, stats TurnStats) error {
	if j.db == nil {
		return ErrJournalClosed
	}
	if stats.TurnID == "" {
		return errors.New("turn id cannot be empty")
	}
	if stats.SessionID == "" {
		stats.SessionID = j.sessionID
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO turns
			(turn_id, session_id, model, started_at, ttft_ms, duration_ms, fragments, flushes, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.TurnID,
		stats.SessionID,
		stats.Model,
		stats.StartedAt.UnixMilli(),
		stats.TTFT.Milliseconds(),
		stats.Duration.Milliseconds(),
		stats.Fragments,
		stats.Flushes,
		stats.Bytes,
		stats.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record turn %s: %w", stats.TurnID, err)
	}
	return nil
}

// Recent returns up to limit turns, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]TurnStats, error) {
	if j.db == nil {
		return nil, ErrJournalClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT turn_id, session_id, model, started_at, ttft_ms, duration_ms, fragments, flushes, bytes, error
		FROM turns
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var out []TurnStats
	for rows.Next() {
		var (
			s                  TurnStats
			startedMs          int64
			ttftMs, durationMs int64
		)
		if err := rows.Scan(&s.TurnID, &s.SessionID, &s.Model, &startedMs, &ttftMs, &durationMs,
			&s.Fragments, &s.Flushes, &s.Bytes, &s.Error); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		s.StartedAt = time.UnixMilli(startedMs)
		s.TTFT = time.Duration(ttftMs) * time.Millisecond
		s.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of recorded turns.
func (j *Journal) Count(ctx context.Context) (int, error) {
	if j.db == nil {
		return 0, ErrJournalClosed
	}
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
