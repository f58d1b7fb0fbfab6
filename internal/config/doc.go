// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rigchat.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides and validation.
//
// # Key Types
//
//   - Config: main configuration structure with all settings
//   - APIConfig: endpoint, model, API key source, system prompt
//   - StreamConfig, ConversationConfig: debounce interval and retention cap
//   - LogConfig, TelemetryConfig, UIConfig: ambient settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the caller)
//   - Environment variables (RIGCHAT_*)
//   - ~/.rigchat/config.toml
//   - Built-in defaults
//
// The API key itself is never stored in the file; it is read from the
// environment variable named by api.api_key_env (OPENAI_API_KEY by default).
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	key, err := cfg.APIKey()
package config
