// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Audio defaults.
const (
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultVoice    = "nova"
	DefaultModel    = "tts-1"
	DefaultSpeed    = 1.25
	DefaultLanguage = "en"
)

// Credentials returns the current OpenAI key, or "" when none is set.
type Credentials func() string

// AudioOptions configures the OpenAI audio clients.
type AudioOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	// Language is the Whisper input language.
	Language string
}

func newClient(key string, opts AudioOptions) *openai.Client {
	cfg := openai.DefaultConfig(key)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAISynthesizer uses the /audio/speech endpoint and returns Opus audio.
type OpenAISynthesizer struct {
	creds Credentials
	opts  AudioOptions
}

// NewOpenAISynthesizer returns a synthesizer reading its key from creds on
// every call.
func NewOpenAISynthesizer(creds Credentials, opts AudioOptions) *OpenAISynthesizer {
	return &OpenAISynthesizer{creds: creds, opts: opts}
}

// Configured reports whether a key is available.
func (s *OpenAISynthesizer) Configured() bool {
	return s.creds != nil && strings.TrimSpace(s.creds()) != ""
}

// Synthesize implements Synthesizer.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, u Utterance) (io.ReadCloser, error) {
	if !s.Configured() {
		return nil, ErrNoCredential
	}
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(orDefault(u.Model, DefaultModel)),
		Input:          u.Text,
		Voice:          openai.SpeechVoice(orDefault(u.Voice, DefaultVoice)),
		ResponseFormat: openai.SpeechResponseFormatOpus,
		Speed:          u.Speed,
	}
	if req.Speed <= 0 {
		req.Speed = DefaultSpeed
	}
	resp, err := newClient(strings.TrimSpace(s.creds()), s.opts).CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("TTS API request failed: %w", err)
	}
	return resp, nil
}

// Recognizer turns recorded speech into text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio io.Reader, name string) (string, error)
}

// WhisperRecognizer uses the /audio/transcriptions endpoint.
type WhisperRecognizer struct {
	creds Credentials
	opts  AudioOptions
}

// NewWhisperRecognizer returns a recognizer reading its key from creds on
// every call.
func NewWhisperRecognizer(creds Credentials, opts AudioOptions) *WhisperRecognizer {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	return &WhisperRecognizer{creds: creds, opts: opts}
}

// Transcribe implements Recognizer. name is the file name reported to the
// API; its extension tells the API the audio format.
func (r *WhisperRecognizer) Transcribe(ctx context.Context, audio io.Reader, name string) (string, error) {
	key := ""
	if r.creds != nil {
		key = strings.TrimSpace(r.creds())
	}
	if key == "" {
		return "", ErrNoCredential
	}
	resp, err := newClient(key, r.opts).CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: name,
		Reader:   audio,
		Language: r.opts.Language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
