// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and usage text for rigchat.

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/jeranaias/rigchat/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdInit
	CmdStats
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdInit:
		return "init"
	case CmdStats:
		return "stats"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// DefaultStatsLimit is the number of turns listed by "stats".
const DefaultStatsLimit = 20

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Global flags
	Model      string
	BaseURL    string
	ConfigPath string
	Debug      bool

	// Command-specific
	Prompt string // ask
	Force  bool   // init
	Limit  int    // stats
}

// switches are the flags that never take a value.
var switches = []string{"debug", "force", "f", "help", "h", "version"}

const usageText = `rigchat - streaming chat client for OpenAI-compatible endpoints
Version: %s

USAGE:
  rigchat [flags] [command]

COMMANDS:
  chat              Interactive chat (default)
  ask <prompt>      Send one prompt and stream the reply to stdout
  init              Write the default config file
  stats             Show recent turn statistics from the journal
  version           Print version information
  help              Show this help

FLAGS:
  -m, --model <name>     Model to use (default from config, gpt-5-mini)
  -c, --config <path>    Config file (default ~/.rigchat/config.toml)
      --base-url <url>   API base URL
      --debug            Log at debug level
  -f, --force            init: overwrite an existing config file
      --limit <n>        stats: number of turns to list (default 20)

ENVIRONMENT:
  OPENAI_API_KEY         API key (the variable name is set by api.api_key_env)
  RIGCHAT_MODEL          Overrides api.model
  RIGCHAT_BASE_URL       Overrides api.base_url
  RIGCHAT_LOG_LEVEL      Overrides log.level
  RIGCHAT_DEBOUNCE_MS    Overrides stream.debounce_ms

EXAMPLES:
  rigchat
  rigchat ask "explain server-sent events"
  echo "summarize this" | rigchat ask -
  rigchat --model gpt-4o-mini chat
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "rigchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments (without the program name).
// Flags may appear before or after the command.
func Parse(argv []string) (Args, error) {
	p := NewArgParser(argv, switches...)

	args := Args{
		Model:      p.FirstFlag("model", "m"),
		BaseURL:    p.Flag("base-url"),
		ConfigPath: p.FirstFlag("config", "c"),
		Debug:      p.BoolFlag("debug"),
	}

	if p.BoolFlag("help") || p.BoolFlag("h") {
		args.Command = CmdHelp
		return args, nil
	}
	if p.BoolFlag("version") {
		args.Command = CmdVersion
		return args, nil
	}

	switch cmd := strings.ToLower(p.Command()); cmd {
	case "", "chat":
		args.Command = CmdChat

	case "ask", "a":
		args.Command = CmdAsk
		args.Prompt = strings.Join(p.PositionalFrom(1), " ")
		if strings.TrimSpace(args.Prompt) == "" {
			return args, NewUsageError("ask requires a prompt", "rigchat ask <prompt>")
		}

	case "init":
		args.Command = CmdInit
		args.Force = p.BoolFlag("force") || p.BoolFlag("f")

	case "stats":
		args.Command = CmdStats
		args.Limit = DefaultStatsLimit
		if s := p.Flag("limit"); s != "" {
			n, err := ParseIntWithValidation(s, "--limit")
			if err != nil {
				return args, NewUsageError(err.Error(), "rigchat stats --limit <n>")
			}
			args.Limit = n
		}

	case "version":
		args.Command = CmdVersion

	case "help":
		args.Command = CmdHelp

	default:
		return args, NewUsageError(fmt.Sprintf("unknown command %q", cmd), "rigchat help")
	}

	return args, nil
}

// Apply copies flag overrides onto cfg. Flags win over the config file and
// the environment.
func (a Args) Apply(cfg *config.Config) {
	if a.Model != "" {
		cfg.API.Model = a.Model
	}
	if a.BaseURL != "" {
		cfg.API.BaseURL = a.BaseURL
	}
	if a.Debug {
		cfg.Log.Level = "debug"
	}
}
