// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/jeranaias/monkai/internal/util"
)

// FileStore keeps every value in one JSON object on disk. The file is read
// on every Get so changes made by another monkai process are picked up.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created on the first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, &StoreError{Op: "open", Err: errors.New("path is required")}
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return doc, nil
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set implements Store.
func (s *FileStore) Set(_ context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	for k, v := range encoded {
		doc[k] = v
	}
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StoreError{Op: "encode", Err: err}
	}
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return &StoreError{Op: "write", Err: err}
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) readLocked() (map[string]json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	return doc, nil
}
