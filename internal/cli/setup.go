// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/monkai/internal/model"
	"github.com/jeranaias/monkai/internal/settings"
	"github.com/jeranaias/monkai/internal/storage"
	"github.com/jeranaias/monkai/internal/ui/styles"
)

// ErrSetupAborted is returned when the user aborts a setup prompt.
var ErrSetupAborted = errors.New("setup aborted")

// prompter is the part of liner.State setup needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
}

// HandleSetup asks for the provider, its API key, the chat model and the
// voice options, then saves them into the settings store.
func HandleSetup(ctx context.Context, app *App) error {
	if !IsTTY() {
		return &UsageError{Reason: "setup needs an interactive terminal"}
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	return runSetup(ctx, line, app.Store, app.Out)
}

func runSetup(ctx context.Context, p prompter, store storage.Store, out io.Writer) error {
	set, err := settings.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	fmt.Fprintln(out, styles.RenderInfo("monkai setup - press Enter to keep the value in brackets"))

	provider, err := ask(p, fmt.Sprintf("Provider (openai/claude) [%s]: ", set.Provider()))
	if err != nil {
		return err
	}
	if provider != "" {
		set.APIProvider = strings.ToLower(provider)
	}
	provider = set.Provider()
	if provider != settings.ProviderOpenAI && provider != settings.ProviderClaude {
		return fmt.Errorf("%w: %q", settings.ErrUnknownProvider, provider)
	}

	key, err := askSecret(p, keyPrompt(settings.ProviderLabel(provider), set.Credential(provider)))
	if err != nil {
		return err
	}
	setCredential(&set, provider, key)

	// Speech and voice input always go through OpenAI.
	if provider == settings.ProviderClaude {
		speechKey, err := askSecret(p, keyPrompt("OpenAI (speech, optional)", set.Credential(settings.ProviderOpenAI)))
		if err != nil {
			return err
		}
		setCredential(&set, settings.ProviderOpenAI, speechKey)
	}
	if err := set.Validate(); err != nil {
		return err
	}

	current := set.ChatModel(provider, "")
	choice, err := ask(p, fmt.Sprintf("Model (%s) [%s]: ", strings.Join(modelIDs(provider), ", "), current))
	if err != nil {
		return err
	}
	switch {
	case choice != "" && !model.BelongsTo(choice, provider):
		return fmt.Errorf("unknown %s model %q", settings.ProviderLabel(provider), choice)
	case choice != "":
		set.Model = choice
	case current == "":
		// The stored model belongs to the other provider.
		set.Model = ""
	}

	if err := askVoice(p, &set); err != nil {
		return err
	}
	if err := set.Save(ctx, store); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	fmt.Fprintln(out, styles.RenderSuccess("Settings saved"))
	return nil
}

// askVoice asks for the voice, speed and speech model used for replies.
func askVoice(p prompter, set *settings.Settings) error {
	voice, err := ask(p, fmt.Sprintf("Voice (%s) [%s]: ", strings.Join(settings.Voices, ", "), set.Voice()))
	if err != nil {
		return err
	}
	if voice != "" {
		if err := set.SetVoice(voice); err != nil {
			return err
		}
	}

	speed, err := ask(p, fmt.Sprintf("Speech speed (%.2f-%.2f) [%.2f]: ", settings.MinSpeed, settings.MaxSpeed, set.Speed()))
	if err != nil {
		return err
	}
	if speed != "" {
		v, err := strconv.ParseFloat(strings.TrimSuffix(speed, "x"), 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", settings.ErrBadSpeed, speed)
		}
		if err := set.SetSpeed(v); err != nil {
			return err
		}
	}

	current := "n"
	if set.HD() {
		current = "y"
	}
	hd, err := ask(p, fmt.Sprintf("HD voice (y/n) [%s]: ", current))
	if err != nil {
		return err
	}
	if hd != "" {
		on, err := ParseBoolString(hd)
		if err != nil {
			return err
		}
		set.SetHD(on)
	}
	return nil
}

func ask(p prompter, prompt string) (string, error) {
	v, err := p.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return "", ErrSetupAborted
	}
	return strings.TrimSpace(v), err
}

func askSecret(p prompter, prompt string) (string, error) {
	v, err := p.PasswordPrompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return "", ErrSetupAborted
	}
	return strings.TrimSpace(v), err
}

func keyPrompt(label, current string) string {
	if current != "" {
		return fmt.Sprintf("%s API key [keep %s]: ", label, maskKey(current))
	}
	return fmt.Sprintf("%s API key: ", label)
}

// maskKey shows only the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func setCredential(set *settings.Settings, provider, key string) {
	if key == "" {
		return
	}
	switch provider {
	case settings.ProviderClaude:
		set.ClaudeAPIKey = key
	default:
		set.APIKey = key
	}
}

func modelIDs(provider string) []string {
	infos := model.GetModelsByProvider(provider)
	ids := make([]string, len(infos))
	for i, m := range infos {
		ids[i] = m.ID
	}
	return ids
}
