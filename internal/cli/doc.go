// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for
// monkai.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global flags plus the command's own arguments
//   - App: The wired config, storage, page provider, speech and session
//   - ArgParser: Flag and positional splitting for subcommands
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	app, err := cli.Open(ctx, args, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	defer app.Close()
//	switch cmd {
//	case cli.CmdAsk:
//	    return cli.HandleAsk(ctx, app, args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - (none), tui: Interactive chat panel
//   - ask: One question, reply streamed to stdout
//   - clear: Empty the saved conversation
//   - setup: Provider, API key and model prompts
//   - config: Show, get and set config.toml values
//   - listen: Transcribe an audio file with Whisper
//   - scripts: Manage and run MonkaiScripter scripts
//
// # Exit Codes
//
// GetExitCode maps errors onto the Exit* constants so scripts can tell a
// usage mistake from a missing key or a network failure.
package cli
