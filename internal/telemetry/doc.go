// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-turn streaming statistics for rigchat.
//
// Each finished turn produces one TurnStats value: time to first fragment,
// total duration, how many fragments arrived and how many of them reached
// the conversation store as flushes. When enabled, the stats are appended to
// a local SQLite journal.
//
// # Key Types
//
//   - TurnStats: statistics of one finished turn
//   - Recorder: sink for finished turns (Journal or NopRecorder)
//   - Journal: SQLite-backed Recorder with query helpers
//   - Summary: aggregate over a set of turns
//
// # Usage
//
//	journal, err := telemetry.OpenJournal(path, sessionID)
//	if err != nil {
//	    return err
//	}
//	defer journal.Close()
//	pipeline := turn.NewPipeline(client, turn.WithRecorder(journal))
//
// # Privacy
//
// The journal is local-only and does not transmit any data.
// Message content is never stored - only counts and timings.
package telemetry
