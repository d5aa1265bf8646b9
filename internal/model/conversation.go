// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// SnapshotKey is the storage key the conversation is persisted under.
const SnapshotKey = "conversationHistory"

var (
	// ErrEmptyMessage is returned when appending a message with no role or
	// no content.
	ErrEmptyMessage = errors.New("message role and content are required")

	// ErrNoStreamingMessage is returned when a streaming-only operation runs
	// while the last message is not the in-flight assistant reply.
	ErrNoStreamingMessage = errors.New("no streaming assistant message")

	// ErrAlreadyStreaming is returned by BeginAssistant while a reply is
	// still in flight.
	ErrAlreadyStreaming = errors.New("an assistant message is already streaming")
)

// Snapshotter persists the ordered message sequence.
type Snapshotter interface {
	SaveConversation(ctx context.Context, msgs []*Message) error
}

// Conversation is the ordered, append-mostly message store for one chat.
// All methods are safe for concurrent use.
type Conversation struct {
	mu       sync.RWMutex
	messages []*Message
	snap     Snapshotter
}

// NewConversation creates an empty conversation. snap may be nil, in which
// case PersistSnapshot is a no-op.
func NewConversation(snap Snapshotter) *Conversation {
	return &Conversation{snap: snap}
}

// Append adds a completed message at the end.
func (c *Conversation) Append(msg *Message) error {
	if msg == nil || !msg.Role.Valid() || strings.TrimSpace(msg.Content) == "" {
		return ErrEmptyMessage
	}
	m := msg.Clone()
	m.Streaming = false

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	return nil
}

// BeginAssistant appends the empty streaming placeholder and returns a copy
// of it.
func (c *Conversation) BeginAssistant() (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streamingLocked() != nil {
		return nil, ErrAlreadyStreaming
	}
	m := NewAssistantPlaceholder()
	c.messages = append(c.messages, m)
	return m.Clone(), nil
}

// ReplaceLast sets the content of the streaming message.
func (c *Conversation) ReplaceLast(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.streamingLocked()
	if last == nil {
		return ErrNoStreamingMessage
	}
	last.Content = content
	return nil
}

// FinalizeLast sets the final content of the streaming message and marks it
// complete.
func (c *Conversation) FinalizeLast(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.streamingLocked()
	if last == nil {
		return ErrNoStreamingMessage
	}
	last.Content = content
	last.Streaming = false
	return nil
}

// RemoveLast drops the streaming message.
func (c *Conversation) RemoveLast() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streamingLocked() == nil {
		return ErrNoStreamingMessage
	}
	c.messages[len(c.messages)-1] = nil
	c.messages = c.messages[:len(c.messages)-1]
	return nil
}

// Window returns copies of the last n completed messages in order.
// A streaming message is never included.
func (c *Conversation) Window(n int) []*Message {
	if n <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	done := c.messages
	if last := len(done) - 1; last >= 0 && done[last].Streaming {
		done = done[:last]
	}
	if len(done) > n {
		done = done[len(done)-n:]
	}
	out := make([]*Message, len(done))
	for i, m := range done {
		out[i] = m.Clone()
	}
	return out
}

// Messages returns copies of every message, including a streaming one.
func (c *Conversation) Messages() []*Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Last returns a copy of the last message, or nil.
func (c *Conversation) Last() *Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1].Clone()
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// IsStreaming reports whether a reply is in flight.
func (c *Conversation) IsStreaming() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.streamingLocked() != nil
}

// Clear removes every message.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// Restore replaces the contents with a persisted snapshot. Invalid entries
// are skipped.
func (c *Conversation) Restore(msgs []*Message) {
	restored := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil || !m.Role.Valid() || m.Content == "" {
			continue
		}
		r := m.Clone()
		r.Streaming = false
		if r.ID == "" {
			r.ID = generateID()
		}
		restored = append(restored, r)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = restored
}

// PersistSnapshot hands the completed messages to the snapshotter.
func (c *Conversation) PersistSnapshot(ctx context.Context) error {
	if c.snap == nil {
		return nil
	}
	c.mu.RLock()
	msgs := make([]*Message, 0, len(c.messages))
	for _, m := range c.messages {
		if !m.Streaming {
			msgs = append(msgs, m.Clone())
		}
	}
	c.mu.RUnlock()
	return c.snap.SaveConversation(ctx, msgs)
}

func (c *Conversation) streamingLocked() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	last := c.messages[len(c.messages)-1]
	if !last.Streaming {
		return nil
	}
	return last
}
