// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package page

import (
	"fmt"
	"strings"
	"sync"
)

// MaxConsoleEntries is how many console lines a Console keeps.
const MaxConsoleEntries = 50

// Console is a ring buffer of formatted console lines, oldest first.
type Console struct {
	mu      sync.Mutex
	entries []string
	max     int
}

// NewConsole returns a buffer holding at most max entries; max <= 0 selects
// MaxConsoleEntries.
func NewConsole(max int) *Console {
	if max <= 0 {
		max = MaxConsoleEntries
	}
	return &Console{max: max}
}

// Add records msg as "[LEVEL] msg".
func (c *Console) Add(level, msg string) {
	c.push(fmt.Sprintf("[%s] %s", strings.ToUpper(level), msg))
}

// AddException records an uncaught error with its source location.
func (c *Console) AddException(msg, source string, line, col int64) {
	c.push(fmt.Sprintf("[ERROR] %s at %s:%d:%d", msg, source, line, col))
}

func (c *Console) push(entry string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	if over := len(c.entries) - c.max; over > 0 {
		c.entries = append(c.entries[:0:0], c.entries[over:]...)
	}
}

// Entries returns a copy of the buffered lines.
func (c *Console) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of buffered lines.
func (c *Console) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops all buffered lines.
func (c *Console) Reset() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}
