// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings holds the per-user preferences monkai keeps in its
// settings store: provider selection, credentials, voice options and the
// context/TTS toggles.
package settings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jeranaias/monkai/internal/model"
	"github.com/jeranaias/monkai/internal/storage"
)

// Storage keys.
const (
	KeyAPIProvider    = "apiProvider"
	KeyAPIKey         = "apiKey"
	KeyClaudeAPIKey   = "claudeApiKey"
	KeyModel          = "model"
	KeyTTSVoice       = "ttsVoice"
	KeyVoiceSelect    = "voiceSelect"
	KeyTTSSpeed       = "ttsSpeed"
	KeyTTSModel       = "ttsModel"
	KeyIncludeDOM     = "includeDom"
	KeyIncludeConsole = "includeConsole"
	KeyEnableTTS      = "enableTts"
)

// Providers.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Install defaults.
const (
	DefaultModel    = "gpt-3.5-turbo"
	DefaultVoice    = "nova"
	DefaultSpeed    = 1.25
	DefaultTTSModel = "hd"
	StandardModel   = "standard"
)

// Playback speed range accepted by the speech endpoint.
const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// Voices accepted by the speech endpoint.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

var (
	// ErrUnknownProvider is returned for a provider other than openai or claude.
	ErrUnknownProvider = errors.New("unknown API provider")

	// ErrMissingKey is returned when the selected provider has no API key.
	ErrMissingKey = errors.New("API key is required")

	ErrUnknownVoice = errors.New("unknown voice")
	ErrBadSpeed     = errors.New("speed out of range")
)

// Settings is the persisted preference set.
type Settings struct {
	APIProvider    string  `json:"apiProvider"`
	APIKey         string  `json:"apiKey"`
	ClaudeAPIKey   string  `json:"claudeApiKey"`
	Model          string  `json:"model"`
	TTSVoice       string  `json:"ttsVoice"`
	VoiceSelect    string  `json:"voiceSelect"`
	TTSSpeed       float64 `json:"ttsSpeed"`
	TTSModel       string  `json:"ttsModel"`
	IncludeDOM     bool    `json:"includeDom"`
	IncludeConsole bool    `json:"includeConsole"`
	EnableTTS      bool    `json:"enableTts"`
}

// Default returns the install-time settings.
func Default() Settings {
	return Settings{
		APIProvider: ProviderOpenAI,
		Model:       DefaultModel,
		TTSVoice:    DefaultVoice,
		VoiceSelect: DefaultVoice,
		TTSSpeed:    DefaultSpeed,
		TTSModel:    DefaultTTSModel,
	}
}

// Provider returns the selected provider, openai when unset.
func (s Settings) Provider() string {
	p := strings.ToLower(strings.TrimSpace(s.APIProvider))
	if p == "" {
		return ProviderOpenAI
	}
	return p
}

// Credential returns the API key for provider.
func (s Settings) Credential(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderClaude:
		return strings.TrimSpace(s.ClaudeAPIKey)
	case ProviderOpenAI:
		return strings.TrimSpace(s.APIKey)
	}
	return ""
}

// ProviderLabel returns the display name used in prompts and messages.
func ProviderLabel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderClaude:
		return "Claude"
	case ProviderOpenAI:
		return "OpenAI"
	}
	return provider
}

// Voice returns the chosen speech voice. voiceSelect wins over ttsVoice.
func (s Settings) Voice() string {
	if s.VoiceSelect != "" {
		return s.VoiceSelect
	}
	if s.TTSVoice != "" {
		return s.TTSVoice
	}
	return DefaultVoice
}

// Speed returns the playback speed, DefaultSpeed when unset.
func (s Settings) Speed() float64 {
	if s.TTSSpeed <= 0 {
		return DefaultSpeed
	}
	return s.TTSSpeed
}

// SpeechModel returns the synthesis model id.
func (s Settings) SpeechModel() string {
	if s.HD() {
		return "tts-1-hd"
	}
	return "tts-1"
}

// ChatModel returns s.Model when it is a known model of provider, otherwise
// fallback.
func (s Settings) ChatModel(provider, fallback string) string {
	if s.Model != "" && model.BelongsTo(s.Model, provider) {
		return s.Model
	}
	return fallback
}

// SetVoice stores v under both voice keys. v must be one of Voices.
func (s *Settings) SetVoice(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(Voices, v) {
		return fmt.Errorf("%w %q, must be one of: %s", ErrUnknownVoice, v, strings.Join(Voices, ", "))
	}
	s.VoiceSelect = v
	s.TTSVoice = v
	return nil
}

// SetSpeed stores the playback speed.
func (s *Settings) SetSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %.2f, must be between %.2f and %.2f", ErrBadSpeed, speed, MinSpeed, MaxSpeed)
	}
	s.TTSSpeed = speed
	return nil
}

// SetHD selects the HD or the standard speech model.
func (s *Settings) SetHD(hd bool) {
	if hd {
		s.TTSModel = DefaultTTSModel
	} else {
		s.TTSModel = StandardModel
	}
}

// HD reports whether the HD speech model is selected.
func (s Settings) HD() bool {
	return s.TTSModel == DefaultTTSModel
}

// ContextRequested reports whether either context toggle is on.
func (s Settings) ContextRequested() bool {
	return s.IncludeDOM || s.IncludeConsole
}

// Validate checks that the selected provider is known and has a key.
func (s Settings) Validate() error {
	p := s.Provider()
	if p != ProviderOpenAI && p != ProviderClaude {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, s.APIProvider)
	}
	if s.Credential(p) == "" {
		return fmt.Errorf("%w: please enter a %s API key", ErrMissingKey, ProviderLabel(p))
	}
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (s *Settings) fields() map[string]any {
	return map[string]any{
		KeyAPIProvider:    &s.APIProvider,
		KeyAPIKey:         &s.APIKey,
		KeyClaudeAPIKey:   &s.ClaudeAPIKey,
		KeyModel:          &s.Model,
		KeyTTSVoice:       &s.TTSVoice,
		KeyVoiceSelect:    &s.VoiceSelect,
		KeyTTSSpeed:       &s.TTSSpeed,
		KeyTTSModel:       &s.TTSModel,
		KeyIncludeDOM:     &s.IncludeDOM,
		KeyIncludeConsole: &s.IncludeConsole,
		KeyEnableTTS:      &s.EnableTTS,
	}
}

// Keys lists every storage key Settings reads.
func Keys() []string {
	return []string{
		KeyAPIProvider, KeyAPIKey, KeyClaudeAPIKey, KeyModel,
		KeyTTSVoice, KeyVoiceSelect, KeyTTSSpeed, KeyTTSModel,
		KeyIncludeDOM, KeyIncludeConsole, KeyEnableTTS,
	}
}

// Load reads settings from store over the defaults. Missing keys keep their
// default value.
func Load(ctx context.Context, store storage.Store) (Settings, error) {
	s := Default()
	vals, err := store.Get(ctx, Keys()...)
	if err != nil {
		return s, err
	}
	var errs []error
	for key, ptr := range s.fields() {
		if _, err := storage.Decode(vals, key, ptr); err != nil {
			errs = append(errs, err)
		}
	}
	return s, errors.Join(errs...)
}

// Save writes every field to store.
func (s Settings) Save(ctx context.Context, store storage.Store) error {
	return store.Set(ctx, s.fieldValues(Keys()...))
}

// SaveToggles writes only the context and TTS toggles.
func (s Settings) SaveToggles(ctx context.Context, store storage.Store) error {
	return store.Set(ctx, s.fieldValues(KeyIncludeDOM, KeyIncludeConsole, KeyEnableTTS))
}

func (s Settings) fieldValues(keys ...string) map[string]any {
	f := s.fields()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = f[k]
	}
	return out
}

// EnsureDefaults writes the install defaults on first run, detected by the
// model key being absent. It reports whether it wrote anything.
func EnsureDefaults(ctx context.Context, store storage.Store) (bool, error) {
	vals, err := store.Get(ctx, KeyModel)
	if err != nil {
		return false, err
	}
	if _, ok := vals[KeyModel]; ok {
		return false, nil
	}
	d := Default()
	err = store.Set(ctx, map[string]any{
		KeyModel:          d.Model,
		KeyTTSVoice:       d.TTSVoice,
		KeyVoiceSelect:    d.VoiceSelect,
		KeyTTSSpeed:       d.TTSSpeed,
		KeyTTSModel:       d.TTSModel,
		model.SnapshotKey: []*model.Message{},
	})
	return err == nil, err
}
