// rigchat - a streaming chat client for OpenAI-compatible endpoints.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/cli"
	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/telemetry"
	"github.com/jeranaias/rigchat/internal/turn"
	"github.com/jeranaias/rigchat/internal/ui/chat"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command and returns the process exit code. Deferred
// cleanup (log file, journal, root context) runs before main exits.
func run(argv []string) int {
	args, err := cli.Parse(argv)
	if err != nil {
		return exitCode(err)
	}

	// Commands that need neither config nor credentials.
	switch args.Command {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdInit:
		return exitCode(cli.RunInit(args.ConfigPath, args.Force, os.Stdout))
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return exitCode(err)
	}

	// Process teardown cancels the root context, which aborts an in-flight
	// request.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if args.Command == cli.CmdStats {
		path, err := cfg.TelemetryPath()
		if err != nil {
			return exitCode(err)
		}
		return exitCode(cli.RunStats(ctx, path, args.Limit, os.Stdout))
	}

	apiKey, err := cfg.APIKey()
	if err != nil {
		return exitCode(err)
	}

	// Headless debugging logs to the terminal; the chat view owns it otherwise.
	if args.Command == cli.CmdAsk && args.Debug {
		cfg.Log.Console = true
	}

	session := uuid.NewString()
	log, closeLog, err := logging.New(cfg, session)
	if err != nil {
		return exitCode(err)
	}
	defer closeLog()

	recorder := openRecorder(cfg, session, log)
	defer func() {
		if j, ok := recorder.(*telemetry.Journal); ok {
			if err := j.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close turn journal")
			}
		}
	}()

	client := cloud.NewClient(apiKey).
		WithBaseURL(cfg.API.BaseURL).
		WithModel(cfg.API.Model).
		WithSystemPrompt(cfg.API.SystemPrompt).
		WithConnectTimeout(cfg.ConnectTimeout()).
		WithLogger(log)

	pipeline := turn.NewPipeline(client,
		turn.WithModel(cfg.API.Model),
		turn.WithDebounce(cfg.Debounce()),
		turn.WithLogger(log),
		turn.WithRecorder(recorder),
	)
	conv := model.NewConversation(cfg.Conversation.MaxMessages)
	ctrl := turn.NewController(conv, pipeline, log)

	log.Info().
		Str("command", args.Command.String()).
		Str("model", client.Model()).
		Str("base_url", client.BaseURL()).
		Str("key", client.KeyFingerprint()).
		Dur("debounce", cfg.Debounce()).
		Int("max_messages", conv.MaxMessages()).
		Msg("rigchat starting")

	switch args.Command {
	case cli.CmdAsk:
		prompt, err := cli.ReadPrompt(args.Prompt, os.Stdin)
		if err != nil {
			return exitCode(err)
		}
		err = cli.RunAsk(ctx, ctrl, prompt, os.Stdout)
		return exitCode(err)
	default:
		return exitCode(runTUI(ctx, cfg, ctrl, log))
	}
}

// loadConfig loads the config file (the default path unless --config was
// given), applies command-line overrides and validates the result.
func loadConfig(args cli.Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	args.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command-line override: %w", err)
	}
	return cfg, nil
}

// openRecorder opens the turn journal when telemetry is enabled. A journal
// that cannot be opened is logged and skipped.
func openRecorder(cfg *config.Config, session string, log zerolog.Logger) telemetry.Recorder {
	if !cfg.Telemetry.Enabled {
		return telemetry.NopRecorder{}
	}
	path, err := cfg.TelemetryPath()
	if err != nil {
		log.Warn().Err(err).Msg("turn journal disabled")
		return telemetry.NopRecorder{}
	}
	j, err := telemetry.OpenJournal(path, session)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("turn journal disabled")
		return telemetry.NopRecorder{}
	}
	log.Debug().Str("path", j.Path()).Msg("turn journal opened")
	return j
}

// runTUI runs the chat view until the user quits.
func runTUI(ctx context.Context, cfg *config.Config, ctrl *turn.Controller, log zerolog.Logger) error {
	if err := cli.RequiresTTY("start the chat view"); err != nil {
		return err
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	m := chat.New(ctx, ctrl, theme,
		chat.WithMarkdown(cfg.UI.Markdown),
		chat.WithModelName(cfg.API.Model),
		chat.WithLogger(log),
	)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat view failed: %w", err)
	}
	return nil
}

// exitCode displays err (if any) on stderr and returns the exit code for it.
func exitCode(err error) int {
	cli.DisplayError(os.Stderr, err)
	return cli.GetExitCode(err)
}
