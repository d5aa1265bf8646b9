// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scripter

import (
	"context"
	"slices"
	"sync"
)

// Reloader re-runs scripts when the stored list actually changes. The
// settings file is rewritten for unrelated keys too, so a file event alone
// is not enough.
type Reloader struct {
	store *Store
	inj   *Injector

	mu   sync.Mutex
	last []Script
}

// NewReloader returns a reloader that treats the current list as seen.
func NewReloader(ctx context.Context, store *Store, inj *Injector) *Reloader {
	r := &Reloader{store: store, inj: inj}
	r.last, _ = store.List(ctx)
	return r
}

// Reload runs the injector if the script list differs from the last one
// seen. It reports whether it ran.
func (r *Reloader) Reload(ctx context.Context) (bool, error) {
	scripts, err := r.store.List(ctx)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	changed := !slices.Equal(scripts, r.last)
	r.last = scripts
	r.mu.Unlock()
	if !changed {
		return false, nil
	}
	_, err = r.inj.Run(ctx, "")
	return true, err
}
