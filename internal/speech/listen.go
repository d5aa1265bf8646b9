// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/monkai/internal/logging"
)

// Listener errors.
var (
	ErrAlreadyListening = errors.New("already listening")
	ErrNotListening     = errors.New("not listening")
)

// Recorder captures microphone audio into a file.
type Recorder interface {
	Record(path string) (Handle, error)
}

// Listener runs one voice-input operation at a time: Start records,
// Stop ends the recording and returns its transcript.
type Listener struct {
	rec   Recorder
	recog Recognizer
	log   *slog.Logger

	mu     sync.Mutex
	handle Handle
	dir    string
	path   string
}

// NewListener returns an idle listener.
func NewListener(rec Recorder, recog Recognizer, logger *slog.Logger) *Listener {
	return &Listener{rec: rec, recog: recog, log: logging.OrDiscard(logger)}
}

// Listening reports whether a recording is in progress.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle != nil
}

// Start begins recording.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle != nil {
		return ErrAlreadyListening
	}
	dir, err := os.MkdirTemp("", "monkai-voice-")
	if err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	path := filepath.Join(dir, "input.wav")
	h, err := l.rec.Record(path)
	if err != nil {
		os.RemoveAll(dir)
		return err
	}
	l.handle, l.dir, l.path = h, dir, path
	l.log.Debug("voice input started", "path", path)
	return nil
}

// Stop ends the recording and transcribes it.
func (l *Listener) Stop(ctx context.Context) (string, error) {
	l.mu.Lock()
	h, dir, path := l.handle, l.dir, l.path
	l.handle, l.dir, l.path = nil, "", ""
	l.mu.Unlock()
	if h == nil {
		return "", ErrNotListening
	}
	defer os.RemoveAll(dir)

	h.Stop()
	if err := h.Wait(); err != nil {
		l.log.Debug("recorder exited", "error", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	text, err := l.recog.Transcribe(ctx, f, filepath.Base(path))
	if err != nil {
		l.log.Warn("speech recognition failed", "error", err)
		return "", err
	}
	return text, nil
}

// Cancel ends the recording without transcribing it.
func (l *Listener) Cancel() {
	l.mu.Lock()
	h, dir := l.handle, l.dir
	l.handle, l.dir, l.path = nil, "", ""
	l.mu.Unlock()
	if h == nil {
		return
	}
	h.Stop()
	_ = h.Wait()
	os.RemoveAll(dir)
}

// TranscribeFile transcribes an existing audio file.
func TranscribeFile(ctx context.Context, recog Recognizer, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return recog.Transcribe(ctx, f, filepath.Base(path))
}
