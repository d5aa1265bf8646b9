// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/monkai/internal/chat"
	"github.com/jeranaias/monkai/internal/speech"
	"github.com/jeranaias/monkai/internal/ui/styles"
)

const askUsage = `monkai ask "what does this page do?"`

// =============================================================================
// ASK
// =============================================================================

// HandleAsk runs one exchange and streams the reply to the app output.
// With speech enabled it returns after playback ends.
func HandleAsk(ctx context.Context, app *App, args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("question", askUsage)
	}

	// The observer runs on the Send goroutine; each delta carries the whole
	// reply so far and only the new suffix is written.
	var (
		mu      sync.Mutex
		printed int
	)
	app.Session.Observe(func(ev chat.Event) {
		if ev.Kind != chat.EventDelta || ev.Message == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if content := ev.Message.Content; len(content) > printed {
			fmt.Fprint(app.Out, content[printed:])
			printed = len(content)
		}
	})
	defer app.Session.Observe(nil)

	err := app.Session.Send(ctx, args.Query)
	mu.Lock()
	if printed > 0 {
		fmt.Fprintln(app.Out)
	}
	mu.Unlock()
	if err != nil {
		if errors.Is(err, chat.ErrConfigMissing) {
			return fmt.Errorf("%w: run 'monkai setup' first", err)
		}
		return err
	}

	if app.Session.Settings().EnableTTS {
		if app.Session.OpenAIKey() == "" {
			fmt.Fprintln(app.Out, styles.RenderWarning(speech.ErrNoCredential.Error()))
			return nil
		}
		return app.Speech.Wait(ctx)
	}
	return nil
}

// =============================================================================
// CLEAR
// =============================================================================

// HandleClear empties the saved conversation.
func HandleClear(ctx context.Context, app *App) error {
	if err := app.Session.Clear(ctx); err != nil {
		return wrapCommand("clear", "conversation", err)
	}
	fmt.Fprintln(app.Out, styles.RenderSuccess("Conversation cleared"))
	return nil
}

// =============================================================================
// LISTEN
// =============================================================================

// HandleListen transcribes an audio file and prints the text.
func HandleListen(ctx context.Context, app *App, args Args) error {
	if len(args.Raw) == 0 || strings.TrimSpace(args.Raw[0]) == "" {
		return ErrMissingArgument("file", "monkai listen recording.wav")
	}
	text, err := speech.TranscribeFile(ctx, app.Recognizer, args.Raw[0])
	if err != nil {
		return wrapCommand("listen", args.Raw[0], err)
	}
	fmt.Fprintln(app.Out, text)
	return nil
}
