// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/jeranaias/monkai/internal/logging"
)

// ErrNoCredential is returned when no OpenAI key is available for audio.
var ErrNoCredential = errors.New("no OpenAI API key for speech")

// Utterance is one piece of text to speak.
type Utterance struct {
	Text  string
	Voice string
	Model string
	Speed float64
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, u Utterance) (io.ReadCloser, error)
}

// Handle is one running playback or recording.
type Handle interface {
	// Wait blocks until the process ends.
	Wait() error
	// Stop ends the process early. It is safe to call more than once.
	Stop()
}

// Player plays encoded audio.
type Player interface {
	Play(ctx context.Context, audio io.Reader) (Handle, error)
}

// Controller plays at most one utterance at a time.
type Controller struct {
	synth  Synthesizer
	player Player
	log    *slog.Logger

	mu       sync.Mutex
	gen      uint64
	speaking bool
	handle   Handle
	cancel   context.CancelFunc
	idle     chan struct{}
	// exited is closed when the latest playback goroutine has returned
	// and its process has been reaped.
	exited chan struct{}
	hook   func(bool)
}

// NewController returns an idle controller.
func NewController(synth Synthesizer, player Player, logger *slog.Logger) *Controller {
	idle := make(chan struct{})
	close(idle)
	exited := make(chan struct{})
	close(exited)
	return &Controller{
		synth:  synth,
		player: player,
		log:    logging.OrDiscard(logger),
		idle:   idle,
		exited: exited,
	}
}

// OnSpeaking sets the hook called when speaking starts and stops.
func (c *Controller) OnSpeaking(fn func(bool)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Speaking reports whether an utterance is being synthesized or played.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Speak stops any current playback and starts speaking u in the background.
// Playback outlives ctx's cancellation; use Stop to end it.
func (c *Controller) Speak(ctx context.Context, u Utterance) error {
	if u.Text == "" {
		return nil
	}

	c.mu.Lock()
	wasSpeaking := c.speaking
	c.stopLocked()
	if !c.synth.Configured() {
		hook := c.hook
		c.mu.Unlock()
		if wasSpeaking && hook != nil {
			hook(false)
		}
		c.log.Warn("speech skipped", "error", ErrNoCredential)
		return ErrNoCredential
	}
	c.gen++
	gen := c.gen
	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.speaking = true
	c.idle = make(chan struct{})
	prev, exited := c.exited, make(chan struct{})
	c.exited = exited
	hook := c.hook
	c.mu.Unlock()

	if hook != nil {
		hook(true)
	}
	go c.play(playCtx, gen, u, prev, exited)
	return nil
}

// play synthesizes u and plays it once the superseded playback, signalled
// by prev, has fully exited.
func (c *Controller) play(ctx context.Context, gen uint64, u Utterance, prev <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	audio, err := c.synth.Synthesize(ctx, u)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn("speech synthesis failed", "error", err)
		}
		c.finish(gen)
		return
	}
	defer audio.Close()

	select {
	case <-prev:
	case <-ctx.Done():
		c.finish(gen)
		return
	}

	h, err := c.player.Play(ctx, audio)
	if err != nil {
		c.log.Warn("audio playback failed", "error", err)
		c.finish(gen)
		return
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		h.Stop()
		_ = h.Wait()
		return
	}
	c.handle = h
	c.mu.Unlock()

	if err := h.Wait(); err != nil && ctx.Err() == nil {
		c.log.Debug("audio player exited", "error", err)
	}
	c.finish(gen)
}

// finish returns to idle unless gen has been superseded.
func (c *Controller) finish(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || !c.speaking {
		c.mu.Unlock()
		return
	}
	c.releaseLocked()
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(false)
	}
}

// Stop ends the current playback, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.speaking {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(false)
	}
}

// Wait blocks until the controller is idle or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) stopLocked() {
	if !c.speaking {
		return
	}
	c.gen++
	if c.handle != nil {
		c.handle.Stop()
	}
	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = nil
	c.handle = nil
	c.speaking = false
	close(c.idle)
}
