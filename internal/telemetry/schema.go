// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

// SchemaVersion tracks the journal schema version for migrations.
const SchemaVersion = 1

// Schema is the SQLite schema of the turn journal.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS turns (
    turn_id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    model TEXT NOT NULL,
    started_at INTEGER NOT NULL,  -- Unix milliseconds
    ttft_ms INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    fragments INTEGER NOT NULL,
    flushes INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_turns_started_at ON turns(started_at);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
`

// InitMetadata seeds the metadata table.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
