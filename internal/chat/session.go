// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/jeranaias/monkai/internal/cloud"
	"github.com/jeranaias/monkai/internal/history"
	"github.com/jeranaias/monkai/internal/logging"
	"github.com/jeranaias/monkai/internal/model"
	"github.com/jeranaias/monkai/internal/page"
	"github.com/jeranaias/monkai/internal/settings"
	"github.com/jeranaias/monkai/internal/speech"
	"github.com/jeranaias/monkai/internal/storage"
	"github.com/jeranaias/monkai/internal/stream"
)

// Defaults for Options.
const (
	DefaultWindow       = 10
	DefaultTTSThreshold = 50
)

var (
	// ErrEmptyInput is returned for blank input. Nothing is recorded.
	ErrEmptyInput = errors.New("empty input")

	// ErrConfigMissing is returned when the selected provider has no key.
	ErrConfigMissing = errors.New("API key not configured")

	// ErrBusy is returned while another exchange is in flight.
	ErrBusy = errors.New("an exchange is already in progress")
)

// State is the exchange lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingContext
	StateStreaming
	StateFinalizing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingContext:
		return "awaiting-context"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind says what an Event reports.
type EventKind int

const (
	// EventState: the session moved to Event.State.
	EventState EventKind = iota
	// EventMessage: Event.Message was appended.
	EventMessage
	// EventDelta: the streaming message now reads Event.Message.Content.
	EventDelta
	// EventFinal: the streaming message was completed.
	EventFinal
	// EventRemoved: the streaming message was dropped.
	EventRemoved
	// EventCleared: the conversation was emptied.
	EventCleared
)

// Event is delivered to the Observer on the goroutine that caused it.
type Event struct {
	Kind    EventKind
	State   State
	Message *model.Message
}

// Observer receives session events. It must not call back into Send.
type Observer func(Event)

// Options configures a Session.
type Options struct {
	Settings   settings.Settings
	Store      storage.Store
	Transports TransportFunc
	// Page may be nil, which makes every context request fail over to the
	// placeholder.
	Page page.Provider
	// Speech may be nil to disable playback.
	Speech       *speech.Controller
	Window       int
	TTSThreshold int
	Logger       *slog.Logger
	// Overrides turns toggles on for this session without saving them.
	Overrides Overrides
}

// Overrides are toggles enabled for one run only.
type Overrides struct {
	DOM     bool
	Console bool
	TTS     bool
}

// Session is one user's chat: the conversation, the prompt history and the
// exchange state.
type Session struct {
	conv       *model.Conversation
	nav        *history.Navigator
	hist       *storage.History
	store      storage.Store
	transports TransportFunc
	page       page.Provider
	speech     *speech.Controller
	window     int
	threshold  int
	log        *slog.Logger

	busy atomic.Bool

	mu        sync.Mutex
	settings  settings.Settings
	overrides Overrides
	state     State
	observer Observer
}

// New creates an idle session with an empty conversation.
func New(opts Options) *Session {
	s := &Session{
		nav:        history.New(nil),
		store:      opts.Store,
		transports: opts.Transports,
		page:       opts.Page,
		speech:     opts.Speech,
		window:     opts.Window,
		threshold:  opts.TTSThreshold,
		log:        logging.OrDiscard(opts.Logger),
		settings:   opts.Settings,
		overrides:  opts.Overrides,
	}
	if s.window <= 0 {
		s.window = DefaultWindow
	}
	if s.threshold <= 0 {
		s.threshold = DefaultTTSThreshold
	}
	if s.page == nil {
		s.page = page.None{}
	}
	if s.store != nil {
		s.hist = storage.NewHistory(s.store)
		s.conv = model.NewConversation(s.hist)
	} else {
		s.conv = model.NewConversation(nil)
	}
	return s
}

// Restore loads the persisted conversation and prompt history.
func (s *Session) Restore(ctx context.Context) error {
	if s.hist == nil {
		return nil
	}
	msgs, err := s.hist.LoadConversation(ctx)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	prompts, err := s.hist.LoadPrompts(ctx)
	if err != nil {
		return fmt.Errorf("load prompt history: %w", err)
	}
	s.conv.Restore(msgs)
	s.mu.Lock()
	s.nav = history.New(prompts)
	s.mu.Unlock()
	return nil
}

// Observe sets the event observer.
func (s *Session) Observe(fn Observer) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Conversation returns the live conversation.
func (s *Session) Conversation() *model.Conversation { return s.conv }

// Speech returns the playback controller, or nil.
func (s *Session) Speech() *speech.Controller { return s.speech }

// Busy reports whether an exchange is in flight.
func (s *Session) Busy() bool { return s.busy.Load() }

// State returns the current exchange state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.settings
	set.IncludeDOM = set.IncludeDOM || s.overrides.DOM
	set.IncludeConsole = set.IncludeConsole || s.overrides.Console
	set.EnableTTS = set.EnableTTS || s.overrides.TTS
	return set
}

// OpenAIKey returns the key used for speech, which always goes to OpenAI.
func (s *Session) OpenAIKey() string {
	return s.Settings().Credential(settings.ProviderOpenAI)
}

// SetToggles updates the context and speech toggles and persists them.
// Explicit values replace any one-run overrides.
func (s *Session) SetToggles(ctx context.Context, flags ContextFlags, tts bool) error {
	s.mu.Lock()
	s.overrides = Overrides{}
	s.settings.IncludeDOM = flags.DOM
	s.settings.IncludeConsole = flags.Console
	s.settings.EnableTTS = tts
	set := s.settings
	s.mu.Unlock()
	if !tts && s.speech != nil {
		s.speech.Stop()
	}
	if s.store == nil {
		return nil
	}
	return set.SaveToggles(ctx, s.store)
}

// HistoryBack steps to an older prompt; draft is the current input.
func (s *Session) HistoryBack(draft string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.StepBack(draft)
}

// HistoryForward steps to a newer prompt, ending at the saved draft.
func (s *Session) HistoryForward() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.StepForward()
}

// HistoryReset returns the prompt cursor to the live draft.
func (s *Session) HistoryReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.ResetOnEdit()
}

// Prompts returns the prompt history, most recent first.
func (s *Session) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Entries()
}

// Send runs one exchange for text. It returns after the reply has been
// streamed and stored, or after the failure has been recorded.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	set := s.Settings()
	provider := set.Provider()
	key := set.Credential(provider)
	if key == "" {
		s.appendSystem(fmt.Sprintf("Please set your %s API key in settings first.", settings.ProviderLabel(provider)))
		return ErrConfigMissing
	}

	s.recordPrompt(ctx, text)

	user := model.NewUserMessage(text)
	if err := s.conv.Append(user); err != nil {
		return err
	}
	s.emit(Event{Kind: EventMessage, Message: user})

	flags := ContextFlags{DOM: set.IncludeDOM, Console: set.IncludeConsole}
	var pc page.Context
	if flags.Any() {
		s.setState(StateAwaitingContext)
		pc = s.collectContext(ctx)
	}
	req := cloud.Request{
		System:   BuildSystemPrompt(flags, pc),
		Messages: s.requestWindow(),
	}

	placeholder, err := s.conv.BeginAssistant()
	if err != nil {
		s.setState(StateIdle)
		return err
	}
	s.emit(Event{Kind: EventMessage, Message: placeholder})
	s.setState(StateStreaming)

	reply, spoken, err := s.stream(ctx, provider, key, set, req)
	if err != nil {
		return s.fail(err)
	}

	s.setState(StateFinalizing)
	if reply == "" {
		s.log.Warn("empty reply", "provider", provider)
		if err := s.conv.RemoveLast(); err == nil {
			s.emit(Event{Kind: EventRemoved})
		}
	} else if err := s.conv.FinalizeLast(reply); err == nil {
		s.emit(Event{Kind: EventFinal, Message: s.conv.Last()})
	}
	if err := s.conv.PersistSnapshot(ctx); err != nil {
		s.log.Warn("failed to save conversation", "error", err)
	}
	if set.EnableTTS && !spoken && reply != "" {
		s.speak(ctx, reply, set)
	}
	s.setState(StateIdle)
	return nil
}

// Clear empties the conversation, persists it and stops speech.
func (s *Session) Clear(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.conv.Clear()
	s.emit(Event{Kind: EventCleared})
	if s.speech != nil {
		s.speech.Stop()
	}
	return s.conv.PersistSnapshot(ctx)
}

func (s *Session) stream(ctx context.Context, provider, key string, set settings.Settings, req cloud.Request) (string, bool, error) {
	parser, err := stream.ProviderFor(provider)
	if err != nil {
		return "", false, err
	}
	tr, err := s.transports(provider, key, set.ChatModel(provider, ""))
	if err != nil {
		return "", false, err
	}
	s.log.Info("chat exchange", "provider", provider, "model", tr.Model(), "window", len(req.Messages))

	body, err := tr.Stream(ctx, req)
	if err != nil {
		return "", false, err
	}
	defer body.Close()

	var (
		buf    strings.Builder
		runes  int
		spoken bool
	)
	err = stream.Decode(ctx, body, parser, func(delta string) {
		if delta == "" {
			return
		}
		buf.WriteString(delta)
		runes += utf8.RuneCountInString(delta)
		content := buf.String()
		if err := s.conv.ReplaceLast(content); err != nil {
			return
		}
		s.emit(Event{Kind: EventDelta, Message: s.conv.Last()})
		if set.EnableTTS && !spoken && runes > s.threshold {
			spoken = true
			s.speak(ctx, content, set)
		}
	}, stream.WithLogger(s.log))
	if err != nil {
		return "", spoken, err
	}
	return buf.String(), spoken, nil
}

func (s *Session) fail(err error) error {
	s.setState(StateFailed)
	s.log.Warn("chat exchange failed", "error", err)
	if rmErr := s.conv.RemoveLast(); rmErr == nil {
		s.emit(Event{Kind: EventRemoved})
	}
	s.appendSystem("Error: " + err.Error())
	s.setState(StateIdle)
	return err
}

func (s *Session) collectContext(ctx context.Context) page.Context {
	pc, err := s.page.Request(ctx)
	if err != nil {
		s.log.Debug("page context unavailable", "error", err)
		return unavailableContext()
	}
	return pc
}

// requestWindow returns the last window user and assistant messages.
// System notices are display-only and never sent.
func (s *Session) requestWindow() []*model.Message {
	all := s.conv.Window(s.conv.Len())
	out := make([]*model.Message, 0, len(all))
	for _, m := range all {
		if m.Role != model.RoleSystem {
			out = append(out, m)
		}
	}
	if len(out) > s.window {
		out = out[len(out)-s.window:]
	}
	return out
}

// recordPrompt saves the prompt history and the stored toggles. One-run
// overrides are left out.
func (s *Session) recordPrompt(ctx context.Context, text string) {
	s.mu.Lock()
	s.nav.RecordSubmission(text)
	entries := s.nav.Entries()
	set := s.settings
	s.mu.Unlock()
	if s.hist == nil {
		return
	}
	if err := s.hist.SavePrompts(ctx, entries); err != nil {
		s.log.Warn("failed to save prompt history", "error", err)
	}
	if err := set.SaveToggles(ctx, s.store); err != nil {
		s.log.Warn("failed to save toggles", "error", err)
	}
}

func (s *Session) speak(ctx context.Context, text string, set settings.Settings) {
	if s.speech == nil {
		return
	}
	_ = s.speech.Speak(ctx, speech.Utterance{
		Text:  text,
		Voice: set.Voice(),
		Model: set.SpeechModel(),
		Speed: set.Speed(),
	})
}

func (s *Session) appendSystem(text string) {
	msg := model.NewSystemMessage(text)
	if err := s.conv.Append(msg); err != nil {
		return
	}
	s.emit(Event{Kind: EventMessage, Message: msg})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.emit(Event{Kind: EventState, State: st})
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	fn := s.observer
	ev.State = s.state
	s.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}
