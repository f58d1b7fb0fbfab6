// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by every component.
//
// The TUI owns the terminal, so logs go to a file by default
// (~/.rigchat/logs/rigchat.log, mode 0600). With log.console set they go to
// stderr through a zerolog.ConsoleWriter instead, which is what the headless
// ask command uses with --debug.
//
// Every entry carries a session field; components add their own component
// field with logger.With().
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/config"
)

// ParseLevel maps a config level name to a zerolog level.
// Unknown names fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds the logger described by cfg. The returned close function
// releases the log file and is safe to call once.
func New(cfg *config.Config, session string) (zerolog.Logger, func() error, error) {
	if cfg.Log.Console {
		return newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, cfg.Log.Level, session),
			func() error { return nil }, nil
	}

	path, err := cfg.LogFilePath()
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return newLogger(file, cfg.Log.Level, session), file.Close, nil
}

func newLogger(w io.Writer, level, session string) zerolog.Logger {
	ctx := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp()
	if session != "" {
		ctx = ctx.Str("session", session)
	}
	return ctx.Logger()
}
