// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scripter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/monkai/internal/storage"
)

// StorageKey holds the script list.
const StorageKey = "monkaiScripts"

// New-script defaults.
const (
	DefaultPattern = "*://*/*"
	DefaultCode    = "// Write your JavaScript code here\n// This script will run on pages matching the URL pattern\n\nconsole.log('MonkaiScript running!');"
)

var (
	ErrNameRequired    = errors.New("please enter a script name")
	ErrPatternRequired = errors.New("please enter a URL pattern")
	ErrNotFound        = errors.New("script not found")
)

// Script is one user script.
type Script struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Code       string `json:"code" yaml:"code"`
	URLPattern string `json:"urlPattern" yaml:"url_pattern"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
}

// NewScript returns an enabled script with the default pattern and code.
func NewScript(name string) Script {
	return Script{Name: name, Code: DefaultCode, URLPattern: DefaultPattern, Enabled: true}
}

// Store is the script list kept in a storage.Store. Every call reads the
// current list so concurrent writers are picked up.
type Store struct {
	mu    sync.Mutex
	store storage.Store
}

// NewStore wraps s.
func NewStore(s storage.Store) *Store {
	return &Store{store: s}
}

// List returns every script in saved order.
func (s *Store) List(ctx context.Context) ([]Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Find returns the script whose ID or name is ref.
func (s *Store) Find(ctx context.Context, ref string) (Script, error) {
	scripts, err := s.List(ctx)
	if err != nil {
		return Script{}, err
	}
	if i := indexOf(scripts, ref); i >= 0 {
		return scripts[i], nil
	}
	return Script{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Save validates sc and stores it. A script without an ID is added with a
// fresh one; otherwise the script with the same ID is replaced.
func (s *Store) Save(ctx context.Context, sc Script) (Script, error) {
	sc.Name = strings.TrimSpace(sc.Name)
	sc.URLPattern = strings.TrimSpace(sc.URLPattern)
	if sc.Name == "" {
		return Script{}, ErrNameRequired
	}
	if sc.URLPattern == "" {
		return Script{}, ErrPatternRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	scripts, err := s.loadLocked(ctx)
	if err != nil {
		return Script{}, err
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
		scripts = append(scripts, sc)
	} else {
		i := indexByID(scripts, sc.ID)
		if i < 0 {
			return Script{}, fmt.Errorf("%w: %s", ErrNotFound, sc.ID)
		}
		scripts[i] = sc
	}
	return sc, s.saveLocked(ctx, scripts)
}

// Toggle flips the enabled flag of the script named by ref.
func (s *Store) Toggle(ctx context.Context, ref string) (Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scripts, err := s.loadLocked(ctx)
	if err != nil {
		return Script{}, err
	}
	i := indexOf(scripts, ref)
	if i < 0 {
		return Script{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	scripts[i].Enabled = !scripts[i].Enabled
	return scripts[i], s.saveLocked(ctx, scripts)
}

// Delete removes the script named by ref.
func (s *Store) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scripts, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	i := indexOf(scripts, ref)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	scripts = append(scripts[:i], scripts[i+1:]...)
	return s.saveLocked(ctx, scripts)
}

// Merge adds scripts, replacing those with a matching ID. Invalid scripts
// are skipped. It returns how many were stored.
func (s *Store) Merge(ctx context.Context, incoming []Script) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scripts, err := s.loadLocked(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sc := range incoming {
		sc.Name = strings.TrimSpace(sc.Name)
		sc.URLPattern = strings.TrimSpace(sc.URLPattern)
		if sc.Name == "" || sc.URLPattern == "" {
			continue
		}
		if i := indexByID(scripts, sc.ID); sc.ID != "" && i >= 0 {
			scripts[i] = sc
		} else {
			if sc.ID == "" {
				sc.ID = uuid.NewString()
			}
			scripts = append(scripts, sc)
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.saveLocked(ctx, scripts)
}

// Matching returns the enabled scripts whose pattern matches url.
func (s *Store) Matching(ctx context.Context, url string) ([]Script, error) {
	scripts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Script
	for _, sc := range scripts {
		if sc.Enabled && MatchesPattern(url, sc.URLPattern) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Store) loadLocked(ctx context.Context) ([]Script, error) {
	vals, err := s.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, err
	}
	var scripts []Script
	if _, err := storage.Decode(vals, StorageKey, &scripts); err != nil {
		return nil, err
	}
	return scripts, nil
}

func (s *Store) saveLocked(ctx context.Context, scripts []Script) error {
	if scripts == nil {
		scripts = []Script{}
	}
	return s.store.Set(ctx, map[string]any{StorageKey: scripts})
}

func indexByID(scripts []Script, id string) int {
	for i, sc := range scripts {
		if sc.ID == id {
			return i
		}
	}
	return -1
}

func indexOf(scripts []Script, ref string) int {
	if i := indexByID(scripts, ref); i >= 0 {
		return i
	}
	for i, sc := range scripts {
		if sc.Name == ref {
			return i
		}
	}
	return -1
}
