// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history implements shell-style recall of previously submitted
// prompts.
//
// Entries are kept most-recent-first and capped at MaxEntries. The cursor is
// -1 while the live draft is shown; stepping back from -1 captures the draft
// so stepping forward past the newest entry restores it.
package history

import (
	"strings"
	"sync"
)

// StorageKey is the settings key the entries are persisted under.
const StorageKey = "promptHistory"

// MaxEntries is the number of prompts retained.
const MaxEntries = 20

// Navigator tracks prompt history and the recall cursor.
type Navigator struct {
	mu      sync.Mutex
	entries []string
	cursor  int
	draft   string
}

// New creates a navigator seeded with persisted entries (most recent first).
// Blank entries are dropped and the list is capped.
func New(entries []string) *Navigator {
	n := &Navigator{cursor: -1}
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		n.entries = append(n.entries, e)
		if len(n.entries) == MaxEntries {
			break
		}
	}
	return n
}

// RecordSubmission pushes text to the front and resets the cursor.
// Blank text is ignored.
func (n *Navigator) RecordSubmission(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	n.entries = append([]string{text}, n.entries...)
	if len(n.entries) > MaxEntries {
		n.entries = n.entries[:MaxEntries]
	}
	n.cursor = -1
	n.draft = ""
}

// StepBack moves to the next older entry and returns it. draft is captured
// only when leaving the live draft. ok is false when there is no history.
// At the oldest entry it stays put and returns that entry again.
func (n *Navigator) StepBack(draft string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.entries) == 0 {
		return draft, false
	}
	if n.cursor == -1 {
		n.draft = draft
	}
	if n.cursor < len(n.entries)-1 {
		n.cursor++
	}
	return n.entries[n.cursor], true
}

// StepForward moves to the next newer entry. Moving past the newest entry
// returns the captured draft. ok is false when already on the draft.
func (n *Navigator) StepForward() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cursor == -1 {
		return n.draft, false
	}
	n.cursor--
	if n.cursor == -1 {
		return n.draft, true
	}
	return n.entries[n.cursor], true
}

// ResetOnEdit returns the cursor to the live draft after the user types.
// The next StepBack captures a fresh draft.
func (n *Navigator) ResetOnEdit() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cursor = -1
	n.draft = ""
}

// Entries returns a copy of the entries, most recent first.
func (n *Navigator) Entries() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.entries))
	copy(out, n.entries)
	return out
}

// Cursor returns the current position, -1 for the draft.
func (n *Navigator) Cursor() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cursor
}
