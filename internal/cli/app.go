// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jeranaias/monkai/internal/chat"
	"github.com/jeranaias/monkai/internal/config"
	"github.com/jeranaias/monkai/internal/logging"
	"github.com/jeranaias/monkai/internal/page"
	"github.com/jeranaias/monkai/internal/scripter"
	"github.com/jeranaias/monkai/internal/settings"
	"github.com/jeranaias/monkai/internal/speech"
	"github.com/jeranaias/monkai/internal/storage"
)

// App is the wired set of components every command works from.
type App struct {
	Config     *config.Config
	Log        *slog.Logger
	Store      storage.Store
	Page       page.Provider
	Speech     *speech.Controller
	Listener   *speech.Listener
	Recognizer speech.Recognizer
	Session    *chat.Session
	Scripts    *scripter.Store

	// Out receives command output.
	Out io.Writer

	closers []func() error
}

// Open loads the config, opens storage and builds the session. Flags in
// args override the stored toggles and provider for this run only.
func Open(ctx context.Context, args Args, out io.Writer) (*App, error) {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	log, closeLog, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Path:   cfg.LogPath(),
	})
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Log: log, Out: out, closers: []func() error{closeLog}}

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, store.Close)
	app.Scripts = scripter.NewStore(store)

	if wrote, err := settings.EnsureDefaults(ctx, store); err != nil {
		app.Close()
		return nil, fmt.Errorf("initialize settings: %w", err)
	} else if wrote {
		log.Info("wrote default settings", "backend", cfg.Storage.Backend)
	}
	set, err := settings.Load(ctx, store)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := applyOverrides(&set, args); err != nil {
		app.Close()
		return nil, err
	}

	app.Page, err = page.New(cfg.Browser, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, func() error { return page.Close(app.Page) })

	// Speech always uses the OpenAI key, read at call time so setup and
	// provider changes take effect without a restart.
	var sess *chat.Session
	creds := func() string {
		if sess == nil {
			return ""
		}
		return sess.OpenAIKey()
	}
	audio := speech.AudioOptions{BaseURL: cfg.Speech.BaseURL, Language: cfg.Speech.Language}
	app.Speech = speech.NewController(
		speech.NewOpenAISynthesizer(creds, audio),
		speech.NewCommandPlayer(cfg.Speech.PlayerCommand),
		log,
	)
	app.closers = append(app.closers, func() error { app.Speech.Stop(); return nil })
	app.Recognizer = speech.NewWhisperRecognizer(creds, audio)
	app.Listener = speech.NewListener(speech.NewCommandRecorder(cfg.Speech.RecordCommand), app.Recognizer, log)

	sess = chat.New(chat.Options{
		Settings:     set,
		Store:        store,
		Transports:   chat.NewTransportFunc(cfg, nil, log),
		Page:         app.Page,
		Speech:       app.Speech,
		Window:       cfg.Chat.Window,
		TTSThreshold: cfg.Chat.TTSThreshold,
		Logger:       log,
		Overrides:    chat.Overrides{DOM: args.DOM, Console: args.Console, TTS: args.TTS},
	})
	if err := sess.Restore(ctx); err != nil {
		log.Warn("could not restore conversation", "error", err)
	}
	app.Session = sess

	log.Debug("app ready",
		"provider", set.Provider(),
		"key", logging.KeyFingerprint(set.Credential(set.Provider())),
		"browser", cfg.Browser.Mode,
		"storage", cfg.Storage.Backend,
	)
	return app, nil
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ChatModel returns the model the session will request.
func (a *App) ChatModel() string {
	set := a.Session.Settings()
	provider := set.Provider()
	fallback := a.Config.OpenAI.Model
	if provider == settings.ProviderClaude {
		fallback = a.Config.Claude.Model
	}
	return set.ChatModel(provider, fallback)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func applyOverrides(set *settings.Settings, args Args) error {
	if args.Provider != "" {
		if args.Provider != settings.ProviderOpenAI && args.Provider != settings.ProviderClaude {
			return &UsageError{
				Reason: fmt.Sprintf("%v: %s", settings.ErrUnknownProvider, args.Provider),
				Usage:  "--provider openai|claude",
			}
		}
		set.APIProvider = args.Provider
	}
	return nil
}
