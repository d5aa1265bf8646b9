// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/monkai/internal/chat"
	"github.com/jeranaias/monkai/internal/logging"
	"github.com/jeranaias/monkai/internal/model"
	"github.com/jeranaias/monkai/internal/ui/styles"
)

// Listener is the voice input the panel drives with the listen key.
type Listener interface {
	Listening() bool
	Start() error
	Stop(ctx context.Context) (string, error)
	Cancel()
}

// Options configures a Model.
type Options struct {
	Session *chat.Session
	// Listener may be nil, which disables voice input.
	Listener Listener
	// Model is the chat model name shown in the header.
	Model string
	Theme *styles.Theme
	// MarkdownStyle is a glamour standard style name. Empty selects the
	// style matching the terminal background.
	MarkdownStyle string
	Logger        *slog.Logger
}

// Model is the Bubble Tea model of the panel.
type Model struct {
	ctx      context.Context
	session  *chat.Session
	listener Listener
	theme    *styles.Theme
	keys     KeyMap
	log      *slog.Logger
	md       *markdown

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width     int
	height    int
	modelName string

	// hidden holds system notices restored from a previous run.
	hidden map[string]bool

	flags     chat.ContextFlags
	tts       bool
	busy      bool
	speaking  bool
	listening bool
	// follow keeps the transcript pinned to the newest message until the
	// user scrolls up.
	follow bool
	notice string
}

// New creates the panel for an already restored session.
func New(ctx context.Context, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about this page..."
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	set := opts.Session.Settings()
	hidden := make(map[string]bool)
	for _, msg := range opts.Session.Conversation().Messages() {
		if msg.Role == model.RoleSystem {
			hidden[msg.ID] = true
		}
	}

	m := Model{
		ctx:       ctx,
		session:   opts.Session,
		listener:  opts.Listener,
		theme:     theme,
		keys:      DefaultKeyMap(),
		log:       logging.OrDiscard(opts.Logger),
		md:        newMarkdown(opts.MarkdownStyle, theme.IsDark),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		width:     80,
		height:    24,
		modelName: opts.Model,
		hidden:    hidden,
		flags:     chat.ContextFlags{DOM: set.IncludeDOM, Console: set.IncludeConsole},
		tts:       set.EnableTTS,
		follow:    true,
	}
	if ctl := opts.Session.Speech(); ctl != nil {
		m.speaking = ctl.Speaking()
	}
	m.layout()
	m.refresh()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case EventMsg:
		return m.handleEvent(chat.Event(msg))

	case SpeakingMsg:
		m.speaking = bool(msg)
		return m, nil

	case sendDoneMsg:
		m.busy = false
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, chat.ErrConfigMissing) && !errors.Is(msg.err, chat.ErrEmptyInput) {
			m.log.Debug("exchange ended with error", "error", msg.err)
		}
		if errors.Is(msg.err, chat.ErrBusy) {
			m.notice = "Still answering the previous question"
		}
		return m, nil

	case clearDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.notice = "Clear failed: " + msg.err.Error()
		}
		return m, nil

	case togglesSavedMsg:
		if msg.err != nil {
			m.notice = "Could not save settings: " + msg.err.Error()
		}
		return m, nil

	case listenStartedMsg:
		if msg.err != nil {
			m.listening = false
			m.notice = "Voice input failed: " + msg.err.Error()
		}
		return m, nil

	case transcriptMsg:
		m.listening = false
		switch {
		case msg.err != nil:
			m.notice = "Voice input failed: " + msg.err.Error()
		case msg.text != "":
			m.input.SetValue(msg.text)
			m.input.CursorEnd()
			m.session.HistoryReset()
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// HANDLERS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.HistoryBack):
		if text, ok := m.session.HistoryBack(m.input.Value()); ok {
			m.input.SetValue(text)
			m.input.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, m.keys.HistoryNext):
		if text, ok := m.session.HistoryForward(); ok {
			m.input.SetValue(text)
			m.input.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		m.follow = true
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.busy {
			m.notice = "Wait for the reply to finish before clearing"
			return m, nil
		}
		m.notice = ""
		return m, clearCmd(m.ctx, m.session)

	case key.Matches(msg, m.keys.Listen):
		return m.toggleListening()

	case key.Matches(msg, m.keys.ToggleDOM):
		m.flags.DOM = !m.flags.DOM
		return m, togglesCmd(m.ctx, m.session, m.flags, m.tts)

	case key.Matches(msg, m.keys.ToggleConsole):
		m.flags.Console = !m.flags.Console
		return m, togglesCmd(m.ctx, m.session, m.flags, m.tts)

	case key.Matches(msg, m.keys.ToggleTTS):
		m.tts = !m.tts
		return m, togglesCmd(m.ctx, m.session, m.flags, m.tts)

	case key.Matches(msg, m.keys.StopSpeech):
		if !m.speaking {
			return m, nil
		}
		return m, stopSpeechCmd(m.session)
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.session.HistoryReset()
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if m.busy {
		m.notice = "Still answering the previous question"
		return m, nil
	}
	if isBlank(text) {
		return m, nil
	}
	m.input.Reset()
	m.busy = true
	m.follow = true
	m.notice = ""
	return m, sendCmd(m.ctx, m.session, text)
}

func (m Model) toggleListening() (tea.Model, tea.Cmd) {
	if m.listener == nil {
		m.notice = "Voice input is not configured"
		return m, nil
	}
	if m.listening {
		m.notice = "Transcribing..."
		return m, stopListenCmd(m.ctx, m.listener)
	}
	m.listening = true
	m.notice = ""
	return m, startListenCmd(m.listener)
}

func (m Model) handleEvent(ev chat.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case chat.EventState:
		m.busy = ev.State != chat.StateIdle || m.session.Busy()
		return m, nil
	case chat.EventCleared:
		m.hidden = make(map[string]bool)
		m.md.reset()
	}
	m.refresh()
	return m, nil
}

// Close releases the voice recorder and stops playback.
func (m Model) Close() {
	if m.listener != nil {
		m.listener.Cancel()
	}
	if ctl := m.session.Speech(); ctl != nil {
		ctl.Stop()
	}
}
