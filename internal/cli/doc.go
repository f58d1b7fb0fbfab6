// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-interactive commands
// of rigchat.
//
// # Key Types
//
//   - Command: the command to run (chat, ask, init, stats, version, help)
//   - Args: parsed global flags and command arguments
//   - ArgParser: flag/positional splitter shared by all commands
//   - UsageError: malformed command line, exit code 2
//
// # Usage
//
//	args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	switch args.Command {
//	case cli.CmdAsk:
//	    err = cli.RunAsk(ctx, ctrl, args.Prompt, os.Stdout)
//	case cli.CmdInit:
//	    err = cli.RunInit(args.ConfigPath, args.Force, os.Stdout)
//	}
//
// The interactive chat view lives in internal/ui/chat; this package only
// checks that a terminal is available for it (RequiresTTY).
package cli
