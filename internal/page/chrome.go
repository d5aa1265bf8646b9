// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package page

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"

	"github.com/jeranaias/monkai/internal/logging"
)

// DefaultDevToolsURL is where a browser started with
// --remote-debugging-port=9222 listens.
const DefaultDevToolsURL = "http://127.0.0.1:9222"

// ChromeOptions configures a ChromeProvider.
type ChromeOptions struct {
	DevToolsURL string
	// TargetURL selects the first tab whose URL starts with it. Empty picks
	// the first page tab.
	TargetURL string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// ChromeProvider collects context from a running browser over the DevTools
// protocol. It connects on first use and reconnects after a failure.
type ChromeProvider struct {
	opts    ChromeOptions
	log     *slog.Logger
	console *Console

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tab         context.Context
	onNavigate  []func(url string)
}

// NewChromeProvider returns an unconnected provider.
func NewChromeProvider(opts ChromeOptions) *ChromeProvider {
	if opts.DevToolsURL == "" {
		opts.DevToolsURL = DefaultDevToolsURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &ChromeProvider{
		opts:    opts,
		log:     logging.OrDiscard(opts.Logger),
		console: NewConsole(MaxConsoleEntries),
	}
}

// Console returns the buffer fed by the attached tab.
func (p *ChromeProvider) Console() *Console { return p.console }

// OnNavigate registers fn to run, on its own goroutine, after each top-level
// navigation of the attached tab.
func (p *ChromeProvider) OnNavigate(fn func(url string)) {
	p.mu.Lock()
	p.onNavigate = append(p.onNavigate, fn)
	p.mu.Unlock()
}

// Request returns the DOM summary and console lines of the attached tab.
func (p *ChromeProvider) Request(ctx context.Context) (Context, error) {
	var title, location, outer string
	err := p.run(ctx,
		chromedp.Title(&title),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &outer, chromedp.ByQuery),
	)
	if err != nil {
		return Context{}, err
	}
	doc, err := html.Parse(strings.NewReader(outer))
	if err != nil {
		return Context{}, fmt.Errorf("%w: parse page: %v", ErrUnavailable, err)
	}
	return Context{
		DOMSummary:  Summarize(doc, title, location),
		ConsoleLogs: p.console.Entries(),
	}, nil
}

// Location returns the URL of the attached tab.
func (p *ChromeProvider) Location(ctx context.Context) (string, error) {
	var location string
	if err := p.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// Evaluate runs expr in the attached tab, discarding its result.
func (p *ChromeProvider) Evaluate(ctx context.Context, expr string) error {
	return p.run(ctx, chromedp.Evaluate(expr, nil))
}

// Close disconnects from the browser. The inspected tab stays open.
func (p *ChromeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectLocked()
	return nil
}

func (p *ChromeProvider) run(ctx context.Context, actions ...chromedp.Action) error {
	tab, err := p.connect()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(tab, p.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.Debug("devtools action failed", "error", err)
		p.mu.Lock()
		if p.tab == tab {
			p.disconnectLocked()
		}
		p.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *ChromeProvider) connect() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tab != nil {
		return p.tab, nil
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), p.opts.DevToolsURL)
	browserCtx, _ := chromedp.NewContext(allocCtx)

	initCtx, cancel := context.WithTimeout(browserCtx, p.opts.Timeout)
	defer cancel()
	if err := chromedp.Run(initCtx); err != nil {
		allocCancel()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrUnavailable, p.opts.DevToolsURL, err)
	}

	targets, err := chromedp.Targets(initCtx)
	if err != nil {
		allocCancel()
		return nil, fmt.Errorf("%w: list targets: %v", ErrUnavailable, err)
	}
	own := chromedp.FromContext(browserCtx).Target.TargetID
	info := pickTarget(targets, own, p.opts.TargetURL)

	tab := browserCtx
	if info != nil {
		tab, _ = chromedp.NewContext(browserCtx, chromedp.WithTargetID(info.TargetID))
	}
	p.listen(tab)

	setup := []chromedp.Action{runtime.Enable(), cdppage.Enable()}
	if info == nil && p.opts.TargetURL != "" {
		setup = append(setup, chromedp.Navigate(p.opts.TargetURL))
	}
	setupCtx, setupCancel := context.WithTimeout(tab, p.opts.Timeout)
	defer setupCancel()
	if err := chromedp.Run(setupCtx, setup...); err != nil {
		allocCancel()
		return nil, fmt.Errorf("%w: attach: %v", ErrUnavailable, err)
	}

	p.log.Info("attached to browser tab", "devtools", p.opts.DevToolsURL, "own_tab", info == nil)
	p.allocCancel = allocCancel
	p.tab = tab
	return tab, nil
}

// disconnectLocked cancels only the allocator, which drops the websocket
// without closing attached tabs.
func (p *ChromeProvider) disconnectLocked() {
	if p.allocCancel != nil {
		p.allocCancel()
	}
	p.allocCancel = nil
	p.tab = nil
}

func (p *ChromeProvider) listen(tab context.Context) {
	chromedp.ListenTarget(tab, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			if level, ok := consoleLevel(ev.Type); ok {
				p.console.Add(level, formatArgs(ev.Args))
			}
		case *runtime.EventExceptionThrown:
			if d := ev.ExceptionDetails; d != nil {
				p.console.AddException(exceptionMessage(d), d.URL, d.LineNumber, d.ColumnNumber)
			}
		case *cdppage.EventFrameNavigated:
			if ev.Frame == nil || ev.Frame.ParentID != "" {
				return
			}
			url := ev.Frame.URL
			p.mu.Lock()
			hooks := append([]func(string){}, p.onNavigate...)
			p.mu.Unlock()
			for _, fn := range hooks {
				go fn(url)
			}
		}
	})
}

// pickTarget returns the first page target other than own whose URL starts
// with prefix, or nil.
func pickTarget(targets []*target.Info, own target.ID, prefix string) *target.Info {
	for _, t := range targets {
		if t.Type != "page" || t.TargetID == own {
			continue
		}
		if prefix == "" || strings.HasPrefix(t.URL, prefix) {
			return t
		}
	}
	return nil
}

func consoleLevel(t runtime.APIType) (string, bool) {
	switch t {
	case runtime.APITypeLog:
		return "log", true
	case runtime.APITypeInfo:
		return "info", true
	case runtime.APITypeWarning:
		return "warn", true
	case runtime.APITypeError:
		return "error", true
	}
	return "", false
}

func formatArgs(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, formatRemoteObject(a))
	}
	return strings.Join(parts, " ")
}

func formatRemoteObject(o *runtime.RemoteObject) string {
	if o == nil {
		return ""
	}
	if len(o.Value) > 0 {
		if o.Type == runtime.TypeString {
			var s string
			if err := sonic.Unmarshal(o.Value, &s); err == nil {
				return s
			}
		}
		return string(o.Value)
	}
	if o.UnserializableValue != "" {
		return string(o.UnserializableValue)
	}
	if o.Description != "" {
		return o.Description
	}
	return string(o.Type)
}

func exceptionMessage(d *runtime.ExceptionDetails) string {
	msg := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		first, _, _ := strings.Cut(d.Exception.Description, "\n")
		msg = strings.TrimSpace(msg + " " + first)
	}
	return msg
}
