// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/monkai/internal/scripter"
	"github.com/jeranaias/monkai/internal/ui/styles"
	"github.com/jeranaias/monkai/internal/util"
)

const scriptsUsage = "monkai scripts [list|add|rm|toggle|run|export|import]"

// HandleScripts implements the "monkai scripts" subcommands.
func HandleScripts(ctx context.Context, app *App, args Args) error {
	p := NewArgParser(args.Raw, "disabled")

	switch strings.ToLower(p.Subcommand()) {
	case "", "list", "ls":
		return listScripts(ctx, app)
	case "add", "new":
		return addScript(ctx, app, p)
	case "rm", "remove", "delete":
		return removeScript(ctx, app, p)
	case "toggle":
		return toggleScript(ctx, app, p)
	case "run":
		return runScripts(ctx, app, p)
	case "export":
		return exportScripts(ctx, app, p)
	case "import":
		return importScripts(ctx, app, p)
	}
	return &UsageError{Reason: "unknown scripts command: " + p.Subcommand(), Usage: scriptsUsage}
}

func listScripts(ctx context.Context, app *App) error {
	scripts, err := app.Scripts.List(ctx)
	if err != nil {
		return wrapCommand("scripts", "list", err)
	}
	if len(scripts) == 0 {
		fmt.Fprintln(app.Out, "No scripts yet. Add one with: monkai scripts add <name> --file script.js")
		return nil
	}
	width := patternWidth(GetTerminalWidth())
	for _, sc := range scripts {
		mark := "[ ]"
		if sc.Enabled {
			mark = "[x]"
		}
		id := sc.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(app.Out, "%-8s %s %-24s %s\n", id, mark, util.TruncateWidth(sc.Name, 24), util.TruncateWidth(sc.URLPattern, width))
	}
	return nil
}

// listPrefixWidth is the ID, mark and name columns of a list row.
const listPrefixWidth = 8 + 1 + 3 + 1 + 24 + 1

// patternWidth is the room left for the URL pattern on a terminal row.
func patternWidth(termWidth int) int {
	return max(termWidth-listPrefixWidth, 8)
}

func addScript(ctx context.Context, app *App, p *ArgParser) error {
	name := JoinPositionalArgs(p, 1)
	if strings.TrimSpace(name) == "" {
		return ErrMissingArgument("name", "monkai scripts add greet --pattern '*://example.com/*' --file greet.js")
	}
	sc := scripter.NewScript(name)
	sc.URLPattern = p.FlagOrDefault("pattern", sc.URLPattern)
	sc.Enabled = !p.BoolFlag("disabled")
	if file := p.Flag("file"); file != "" {
		code, err := readSource(file)
		if err != nil {
			return wrapCommand("scripts", "add", err)
		}
		sc.Code = code
	}

	saved, err := app.Scripts.Save(ctx, sc)
	if err != nil {
		return wrapCommand("scripts", "add", err)
	}
	fmt.Fprintln(app.Out, styles.RenderSuccess(fmt.Sprintf("Saved script %q (%s)", saved.Name, saved.ID)))
	return nil
}

func removeScript(ctx context.Context, app *App, p *ArgParser) error {
	ref := JoinPositionalArgs(p, 1)
	if ref == "" {
		return ErrMissingArgument("name or id", "monkai scripts rm greet")
	}
	if err := app.Scripts.Delete(ctx, ref); err != nil {
		return wrapCommand("scripts", "rm", err)
	}
	fmt.Fprintln(app.Out, styles.RenderSuccess("Deleted "+ref))
	return nil
}

func toggleScript(ctx context.Context, app *App, p *ArgParser) error {
	ref := JoinPositionalArgs(p, 1)
	if ref == "" {
		return ErrMissingArgument("name or id", "monkai scripts toggle greet")
	}
	sc, err := app.Scripts.Toggle(ctx, ref)
	if err != nil {
		return wrapCommand("scripts", "toggle", err)
	}
	state := "disabled"
	if sc.Enabled {
		state = "enabled"
	}
	fmt.Fprintln(app.Out, styles.RenderSuccess(fmt.Sprintf("%s is now %s", sc.Name, state)))
	return nil
}

func runScripts(ctx context.Context, app *App, p *ArgParser) error {
	eval, ok := app.Page.(scripter.Evaluator)
	if !ok {
		return &UsageError{
			Reason: "running scripts needs a browser tab (browser.mode = \"chrome\")",
			Usage:  "monkai config set browser.mode chrome",
		}
	}
	results, err := scripter.NewInjector(app.Scripts, eval, app.Log).Run(ctx, p.Positional(1))
	if len(results) == 0 && err == nil {
		fmt.Fprintln(app.Out, "No enabled scripts match this page")
		return nil
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintln(app.Out, styles.RenderError(fmt.Sprintf("%s: %v", r.Script.Name, r.Err)))
			continue
		}
		fmt.Fprintln(app.Out, styles.RenderSuccess(r.Script.Name))
	}
	if err != nil {
		return wrapCommand("scripts", "run", err)
	}
	return nil
}

func exportScripts(ctx context.Context, app *App, p *ArgParser) (err error) {
	scripts, err := app.Scripts.List(ctx)
	if err != nil {
		return wrapCommand("scripts", "export", err)
	}
	w := app.Out
	if path := p.Positional(1); path != "" && path != "-" {
		f, ferr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if ferr != nil {
			return wrapCommand("scripts", "export", ferr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	if err := scripter.Export(w, scripts); err != nil {
		return wrapCommand("scripts", "export", err)
	}
	if w != app.Out {
		fmt.Fprintln(app.Out, styles.RenderSuccess(fmt.Sprintf("Exported %d scripts to %s", len(scripts), p.Positional(1))))
	}
	return nil
}

func importScripts(ctx context.Context, app *App, p *ArgParser) error {
	path := p.Positional(1)
	if path == "" {
		return ErrMissingArgument("file", "monkai scripts import scripts.yaml")
	}
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return wrapCommand("scripts", "import", err)
		}
		defer f.Close()
		r = f
	}
	scripts, err := scripter.Import(r)
	if err != nil {
		return wrapCommand("scripts", "import", err)
	}
	n, err := app.Scripts.Merge(ctx, scripts)
	if err != nil {
		return wrapCommand("scripts", "import", err)
	}
	fmt.Fprintln(app.Out, styles.RenderSuccess(fmt.Sprintf("Imported %d scripts", n)))
	return nil
}

// readSource reads a file, or stdin for "-".
func readSource(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", errors.New("script file is empty")
	}
	return string(data), nil
}
