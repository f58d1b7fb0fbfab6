// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rigchat packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateRunes: UTF-8 safe truncation with ellipsis, used for log fields
//   - TruncateWidth: display-width truncation for the status line
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	preview := util.TruncateRunes(payload, 120)
package util
