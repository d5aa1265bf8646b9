// monkai - chat about the page in your browser, from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/monkai/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(ctx context.Context, argv []string) error {
	cmd, args := cli.Parse(argv)

	// Commands that need no storage or session.
	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return nil
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	case cli.CmdConfig:
		return cli.HandleConfig(args, os.Stdout)
	}

	app, err := cli.Open(ctx, args, os.Stdout)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case cli.CmdAsk:
		return cli.HandleAsk(ctx, app, args)
	case cli.CmdClear:
		return cli.HandleClear(ctx, app)
	case cli.CmdSetup:
		return cli.HandleSetup(ctx, app)
	case cli.CmdListen:
		return cli.HandleListen(ctx, app, args)
	case cli.CmdScripts:
		return cli.HandleScripts(ctx, app, args)
	default:
		return cli.HandleTUI(ctx, app)
	}
}
