// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scripter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeranaias/monkai/internal/logging"
)

// Evaluator runs JavaScript in the current page.
type Evaluator interface {
	Location(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, expr string) error
}

// Injector runs matching scripts in a page.
type Injector struct {
	store *Store
	eval  Evaluator
	log   *slog.Logger
}

// NewInjector returns an injector evaluating scripts from store through
// eval.
func NewInjector(store *Store, eval Evaluator, logger *slog.Logger) *Injector {
	return &Injector{store: store, eval: eval, log: logging.OrDiscard(logger)}
}

// Result is the outcome of one script.
type Result struct {
	Script Script
	Err    error
}

// Run evaluates every enabled script matching url. An empty url means the
// page's current location. A failing script does not stop the rest; the
// returned error joins the individual failures.
func (i *Injector) Run(ctx context.Context, url string) ([]Result, error) {
	if url == "" {
		loc, err := i.eval.Location(ctx)
		if err != nil {
			return nil, err
		}
		url = loc
	}
	scripts, err := i.store.Matching(ctx, url)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(scripts))
	var errs []error
	for _, sc := range scripts {
		i.log.Info("running script", "name", sc.Name, "url", url)
		err := i.eval.Evaluate(ctx, Wrap(sc))
		if err != nil {
			i.log.Warn("script failed", "name", sc.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sc.Name, err))
		}
		results = append(results, Result{Script: sc, Err: err})
	}
	return results, errors.Join(errs...)
}

var nameEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

// Wrap returns the script body inside an IIFE that reports exceptions to
// the page console instead of throwing.
func Wrap(sc Script) string {
	return fmt.Sprintf(`(function() {
  try {
    %s
  } catch (e) {
    console.error('[MonkaiScripter] Error in %s:', e);
  }
})();`, sc.Code, nameEscaper.Replace(sc.Name))
}
