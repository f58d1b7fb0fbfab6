// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigchat/internal/util"
)

// ErrMissingAPIKey is returned when the API key environment variable is
// unset or blank.
var ErrMissingAPIKey = errors.New("API key not set")

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Version string `toml:"version"`

	API          APIConfig          `toml:"api"`
	Stream       StreamConfig       `toml:"stream"`
	Conversation ConversationConfig `toml:"conversation"`
	Log          LogConfig          `toml:"log"`
	Telemetry    TelemetryConfig    `toml:"telemetry"`
	UI           UIConfig           `toml:"ui"`
}

// APIConfig contains the completions endpoint settings.
type APIConfig struct {
	// BaseURL is the API root; "/chat/completions" is appended.
	BaseURL string `toml:"base_url"`
	// Model is sent with every request.
	Model string `toml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`
	// SystemPrompt, if set, is prepended to every request.
	SystemPrompt string `toml:"system_prompt"`
	// ConnectTimeoutSecs bounds dialing and the TLS handshake.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs"`
}

// StreamConfig contains streaming delivery settings.
type StreamConfig struct {
	// DebounceMs is the minimum time between two store flushes. 0 flushes
	// every fragment.
	DebounceMs int `toml:"debounce_ms"`
}

// ConversationConfig contains conversation log settings.
type ConversationConfig struct {
	// MaxMessages is the retention cap; must be even.
	MaxMessages int `toml:"max_messages"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// File is the log file path; empty means ~/.rigchat/logs/rigchat.log.
	File string `toml:"file"`
	// Console writes human-readable logs to stderr instead of the file.
	Console bool `toml:"console"`
}

// TelemetryConfig contains turn journal settings.
type TelemetryConfig struct {
	// Enabled turns on the SQLite turn journal.
	Enabled bool `toml:"enabled"`
	// Path is the journal file; empty means ~/.rigchat/turns.db.
	Path string `toml:"path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// Markdown renders assistant messages as markdown.
	Markdown bool `toml:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		API: APIConfig{
			BaseURL:            "https://api.openai.com/v1",
			Model:              "gpt-5-mini",
			APIKeyEnv:          "OPENAI_API_KEY",
			ConnectTimeoutSecs: 10,
		},

		Stream: StreamConfig{
			DebounceMs: 50,
		},

		Conversation: ConversationConfig{
			MaxMessages: 200,
		},

		Log: LogConfig{
			Level: "info",
		},

		Telemetry: TelemetryConfig{
			Enabled: false,
		},

		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// defaultPath resolves configured (if set) or ~/.rigchat/<elem...>.
func defaultPath(configured string, elem ...string) (string, error) {
	if configured != "" {
		return expandHome(configured), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}

// LogFilePath returns the resolved log file path.
func (c *Config) LogFilePath() (string, error) {
	return defaultPath(c.Log.File, "logs", "rigchat.log")
}

// TelemetryPath returns the resolved turn journal path.
func (c *Config) TelemetryPath() (string, error) {
	return defaultPath(c.Telemetry.Path, "turns.db")
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.rigchat/config.toml if it exists, otherwise the defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
// Keys missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes path on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in blank string values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if strings.TrimSpace(cfg.API.Model) == "" {
		cfg.API.Model = defaults.API.Model
	}
	if strings.TrimSpace(cfg.API.APIKeyEnv) == "" {
		cfg.API.APIKeyEnv = defaults.API.APIKeyEnv
	}
	if cfg.API.ConnectTimeoutSecs == 0 {
		cfg.API.ConnectTimeoutSecs = defaults.API.ConnectTimeoutSecs
	}
	if cfg.Conversation.MaxMessages == 0 {
		cfg.Conversation.MaxMessages = defaults.Conversation.MaxMessages
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigchat configuration file\n")
	buf.WriteString("# The API key is read from the environment variable named by api.api_key_env.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", c.API.BaseURL),
		})
	}
	if strings.TrimSpace(c.API.Model) == "" {
		errs = append(errs, ValidationError{Field: "api.model", Message: "cannot be empty"})
	}
	if !envNamePattern.MatchString(c.API.APIKeyEnv) {
		errs = append(errs, ValidationError{
			Field:   "api.api_key_env",
			Message: fmt.Sprintf("'%s' is not a valid environment variable name", c.API.APIKeyEnv),
		})
	}
	if c.API.ConnectTimeoutSecs < 1 || c.API.ConnectTimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "api.connect_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 300, got %d", c.API.ConnectTimeoutSecs),
		})
	}

	// Stream
	if c.Stream.DebounceMs < 0 || c.Stream.DebounceMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "stream.debounce_ms",
			Message: fmt.Sprintf("must be between 0 and 1000, got %d", c.Stream.DebounceMs),
		})
	}

	// Conversation
	if n := c.Conversation.MaxMessages; n < 2 || n%2 != 0 || n > 100000 {
		errs = append(errs, ValidationError{
			Field:   "conversation.max_messages",
			Message: fmt.Sprintf("must be an even number between 2 and 100000, got %d", n),
		})
	}

	// Log
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - RIGCHAT_MODEL: overrides api.model
//   - RIGCHAT_BASE_URL: overrides api.base_url
//   - RIGCHAT_LOG_LEVEL: overrides log.level
//   - RIGCHAT_DEBOUNCE_MS: overrides stream.debounce_ms (ignored if not an integer)
func (c *Config) ApplyEnvOverrides() {
	if model := strings.TrimSpace(os.Getenv("RIGCHAT_MODEL")); model != "" {
		c.API.Model = model
	}
	if baseURL := strings.TrimSpace(os.Getenv("RIGCHAT_BASE_URL")); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if level := strings.TrimSpace(os.Getenv("RIGCHAT_LOG_LEVEL")); level != "" {
		c.Log.Level = level
	}
	if raw := strings.TrimSpace(os.Getenv("RIGCHAT_DEBOUNCE_MS")); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil {
			c.Stream.DebounceMs = ms
		}
	}
}

// APIKey reads the API key from the configured environment variable.
func (c *Config) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(c.API.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, c.API.APIKeyEnv)
	}
	return key, nil
}

// Debounce returns the flush interval as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Stream.DebounceMs) * time.Millisecond
}

// ConnectTimeout returns the connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.API.ConnectTimeoutSecs) * time.Second
}

// =============================================================================
// DISPLAY
// =============================================================================

// String returns the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
