// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"github.com/jeranaias/monkai/internal/page"
	"github.com/jeranaias/monkai/internal/scripter"
	"github.com/jeranaias/monkai/internal/storage"
	"github.com/jeranaias/monkai/internal/ui/panel"
)

// HandleTUI runs the interactive panel. With a Chrome provider, matching
// scripts run on every navigation and again whenever the stored list
// changes.
func HandleTUI(ctx context.Context, app *App) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &UsageError{
			Reason: "the chat panel needs an interactive terminal",
			Usage:  askUsage,
		}
	}

	if chrome, ok := app.Page.(*page.ChromeProvider); ok {
		stop, err := startScripter(ctx, app, chrome)
		if err != nil {
			app.Log.Warn("script reloading disabled", "error", err)
		}
		defer stop()
	}

	return panel.Run(ctx, panel.Options{
		Session:  app.Session,
		Listener: app.Listener,
		Model:    app.ChatModel(),
		Logger:   app.Log,
	})
}

// startScripter wires the injector to navigation events and, for the file
// backend, to changes of the settings file.
func startScripter(ctx context.Context, app *App, chrome *page.ChromeProvider) (func(), error) {
	inj := scripter.NewInjector(app.Scripts, chrome, app.Log)
	chrome.OnNavigate(func(url string) {
		if _, err := inj.Run(ctx, url); err != nil {
			app.Log.Warn("scripts failed after navigation", "url", url, "error", err)
		}
	})

	// Attach now so the current page gets its scripts and later
	// navigations are observed.
	go func() {
		if _, err := inj.Run(ctx, ""); err != nil && !errors.Is(err, context.Canceled) {
			app.Log.Debug("initial script run skipped", "error", err)
		}
	}()

	fs, ok := app.Store.(*storage.FileStore)
	if !ok {
		return func() {}, nil
	}
	rel := scripter.NewReloader(ctx, app.Scripts, inj)
	w, err := scripter.Watch(fs.Path(), scripter.DefaultDebounce, func() {
		ran, err := rel.Reload(ctx)
		if err != nil {
			app.Log.Warn("script reload failed", "error", err)
			return
		}
		if ran {
			app.Log.Info("scripts reloaded")
		}
	}, app.Log)
	if err != nil {
		return func() {}, err
	}
	return func() { _ = w.Close() }, nil
}
