// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/monkai/internal/cloud"
	"github.com/jeranaias/monkai/internal/config"
	"github.com/jeranaias/monkai/internal/model"
	"github.com/jeranaias/monkai/internal/page"
	"github.com/jeranaias/monkai/internal/settings"
	"github.com/jeranaias/monkai/internal/speech"
	"github.com/jeranaias/monkai/internal/storage"
)

func openAIChunks(parts ...string) string {
	var sb strings.Builder
	for _, p := range parts {
		q, _ := sonic.MarshalString(p)
		fmt.Fprintf(&sb, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", q)
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

// fakeAPI serves canned SSE bodies and records request bodies.
type fakeAPI struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	bodies []map[string]any
	status int
	reply  string
	hold   chan struct{}
}

func newFakeAPI(t *testing.T, reply string) *fakeAPI {
	api := &fakeAPI{t: t, status: http.StatusOK, reply: reply}
	api.srv = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = sonic.Unmarshal(raw, &body)
	a.mu.Lock()
	a.bodies = append(a.bodies, body)
	hold, status, reply := a.hold, a.status, a.reply
	a.mu.Unlock()
	if hold != nil {
		<-hold
	}
	w.WriteHeader(status)
	flusher, _ := w.(http.Flusher)
	// Fragment writes to exercise cross-chunk buffering.
	for i := 0; i < len(reply); i += 7 {
		end := min(i+7, len(reply))
		_, _ = io.WriteString(w, reply[i:end])
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (a *fakeAPI) respond(status int, reply string) {
	a.mu.Lock()
	a.status, a.reply = status, reply
	a.mu.Unlock()
}

func (a *fakeAPI) lastBody() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(a.t, a.bodies)
	return a.bodies[len(a.bodies)-1]
}

func (a *fakeAPI) requests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bodies)
}

func (a *fakeAPI) transports() TransportFunc {
	return func(provider, apiKey, model string) (cloud.Transport, error) {
		return cloud.New(provider, apiKey, cloud.Options{BaseURL: a.srv.URL, Model: model})
	}
}

type fakePage struct {
	pc  page.Context
	err error
}

func (p fakePage) Request(context.Context) (page.Context, error) { return p.pc, p.err }

type recordedEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordedEvents) observe(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordedEvents) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, ev := range r.events {
		if ev.Kind == EventState {
			out = append(out, ev.State)
		}
	}
	return out
}

func newStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	return st
}

func openAISettings() settings.Settings {
	s := settings.Default()
	s.APIKey = "sk-test"
	return s
}

func roles(msgs []*model.Message) []model.Role {
	out := make([]model.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestSendEmptyInput(t *testing.T) {
	api := newFakeAPI(t, openAIChunks("x"))
	s := New(Options{Settings: openAISettings(), Transports: api.transports()})

	for _, in := range []string{"", "   ", "\n\t"} {
		assert.ErrorIs(t, s.Send(context.Background(), in), ErrEmptyInput)
	}
	assert.Zero(t, s.Conversation().Len())
	assert.Empty(t, s.Prompts())
	assert.Zero(t, api.requests())
}

func TestSendConfigMissing(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{settings.ProviderOpenAI, "Please set your OpenAI API key in settings first."},
		{settings.ProviderClaude, "Please set your Claude API key in settings first."},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			api := newFakeAPI(t, openAIChunks("x"))
			set := settings.Default()
			set.APIProvider = tt.provider
			set.APIKey = ""
			s := New(Options{Settings: set, Transports: api.transports(), Store: newStore(t)})

			err := s.Send(context.Background(), "hello")
			assert.ErrorIs(t, err, ErrConfigMissing)

			msgs := s.Conversation().Messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, model.RoleSystem, msgs[0].Role)
			assert.Equal(t, tt.want, msgs[0].Content)
			assert.Empty(t, s.Prompts())
			assert.Zero(t, api.requests())
			assert.Equal(t, StateIdle, s.State())
		})
	}
}

func TestSendSuccess(t *testing.T) {
	api := newFakeAPI(t, openAIChunks("Hel", "lo ", "wörld"))
	store := newStore(t)
	rec := &recordedEvents{}
	s := New(Options{Settings: openAISettings(), Transports: api.transports(), Store: store})
	s.Observe(rec.observe)

	require.NoError(t, s.Send(context.Background(), "  what is this?  "))

	msgs := s.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "what is this?", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello wörld", msgs[1].Content)
	assert.False(t, msgs[1].Streaming)
	assert.False(t, s.Busy())

	assert.Equal(t, []State{StateStreaming, StateFinalizing, StateIdle}, rec.states())

	body := api.lastBody()
	sent := body["messages"].([]any)
	require.Len(t, sent, 2)
	first := sent[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, Persona, first["content"])
	assert.Equal(t, "what is this?", sent[1].(map[string]any)["content"])

	hist := storage.NewHistory(store)
	saved, err := hist.LoadConversation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(saved))
	prompts, err := hist.LoadPrompts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"what is this?"}, prompts)
}

func TestSendDeltasUpdatePlaceholder(t *testing.T) {
	api := newFakeAPI(t, openAIChunks("a", "b", "c"))
	rec := &recordedEvents{}
	s := New(Options{Settings: openAISettings(), Transports: api.transports()})
	s.Observe(rec.observe)
	require.NoError(t, s.Send(context.Background(), "hi"))

	var deltas []string
	for _, ev := range rec.events {
		if ev.Kind == EventDelta {
			assert.True(t, ev.Message.Streaming)
			deltas = append(deltas, ev.Message.Content)
		}
	}
	assert.Equal(t, []string{"a", "ab", "abc"}, deltas)
}

func TestSendFailure(t *testing.T) {
	api := newFakeAPI(t, "")
	api.respond(http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`)
	store := newStore(t)
	s := New(Options{Settings: openAISettings(), Transports: api.transports(), Store: store})
	rec := &recordedEvents{}
	s.Observe(rec.observe)

	err := s.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, cloud.ErrAuthFailed)

	msgs := s.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleSystem, msgs[1].Role)
	assert.Equal(t, "Error: Incorrect API key provided", msgs[1].Content)
	assert.False(t, s.Conversation().IsStreaming())
	assert.Equal(t, []State{StateStreaming, StateFailed, StateIdle}, rec.states())

	// The failed exchange is not persisted, but the prompt is.
	hist := storage.NewHistory(store)
	saved, err := hist.LoadConversation(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved)
	assert.Equal(t, []string{"hi"}, s.Prompts())

	// The error notice is not sent on the next exchange.
	api.respond(http.StatusOK, openAIChunks("ok"))
	require.NoError(t, s.Send(context.Background(), "again"))
	sent := api.lastBody()["messages"].([]any)
	for _, m := range sent[1:] {
		assert.NotEqual(t, "system", m.(map[string]any)["role"])
	}
	assert.Len(t, sent, 3)
}

func TestSendTransportError(t *testing.T) {
	s := New(Options{
		Settings: openAISettings(),
		Transports: func(provider, apiKey, model string) (cloud.Transport, error) {
			return cloud.New(provider, apiKey, cloud.Options{BaseURL: "http://127.0.0.1:1"})
		},
	})
	err := s.Send(context.Background(), "hi")
	require.Error(t, err)
	last := s.Conversation().Last()
	require.NotNil(t, last)
	assert.Equal(t, model.RoleSystem, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "Error: "))
	assert.Equal(t, 2, s.Conversation().Len())
}

func TestSendEmptyReply(t *testing.T) {
	api := newFakeAPI(t, "data: [DONE]\n\n")
	s := New(Options{Settings: openAISettings(), Transports: api.transports()})
	require.NoError(t, s.Send(context.Background(), "hi"))
	assert.Equal(t, []model.Role{model.RoleUser}, roles(s.Conversation().Messages()))
}

func TestSendPageContext(t *testing.T) {
	tests := []struct {
		name     string
		dom      bool
		console  bool
		provider page.Provider
		contains []string
		excludes []string
	}{
		{
			name:     "dom and console",
			dom:      true,
			console:  true,
			provider: fakePage{pc: page.Context{DOMSummary: "Page: Shop", ConsoleLogs: []string{"[LOG] a", "[WARN] b"}}},
			contains: []string{
				"\n\nCurrent page DOM structure (simplified):\nPage: Shop\n",
				"\n\nRecent console logs:\n[LOG] a\n[WARN] b\n",
				"\nUse this context to answer questions about the current webpage.",
			},
		},
		{
			name:     "dom only",
			dom:      true,
			provider: fakePage{pc: page.Context{DOMSummary: "Page: Shop", ConsoleLogs: []string{"[LOG] a"}}},
			contains: []string{"Page: Shop"},
			excludes: []string{"Recent console logs"},
		},
		{
			name:     "provider failure",
			dom:      true,
			console:  true,
			provider: fakePage{err: page.ErrUnavailable},
			contains: []string{
				"(simplified):\n" + ContextUnavailable + "\n",
				"Recent console logs:\n" + ContextUnavailable + "\n",
			},
		},
		{
			name:     "empty console omitted",
			console:  true,
			provider: fakePage{pc: page.Context{DOMSummary: "Page: Shop"}},
			contains: []string{"Use this context"},
			excludes: []string{"Recent console logs", "Page: Shop"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, openAIChunks("ok"))
			set := openAISettings()
			set.IncludeDOM = tt.dom
			set.IncludeConsole = tt.console
			rec := &recordedEvents{}
			s := New(Options{Settings: set, Transports: api.transports(), Page: tt.provider})
			s.Observe(rec.observe)

			require.NoError(t, s.Send(context.Background(), "hi"))

			system := api.lastBody()["messages"].([]any)[0].(map[string]any)["content"].(string)
			assert.True(t, strings.HasPrefix(system, Persona))
			for _, c := range tt.contains {
				assert.Contains(t, system, c)
			}
			for _, c := range tt.excludes {
				assert.NotContains(t, system, c)
			}
			assert.Equal(t, []State{StateAwaitingContext, StateStreaming, StateFinalizing, StateIdle}, rec.states())
		})
	}
}

func TestBuildSystemPromptWithoutContext(t *testing.T) {
	assert.Equal(t, Persona, BuildSystemPrompt(ContextFlags{}, page.Context{DOMSummary: "ignored"}))
}

func TestSendWindow(t *testing.T) {
	api := newFakeAPI(t, openAIChunks("ok"))
	s := New(Options{Settings: openAISettings(), Transports: api.transports(), Window: 4})
	var restored []*model.Message
	for i := 0; i < 6; i++ {
		restored = append(restored,
			model.NewUserMessage(fmt.Sprintf("q%d", i)),
			model.NewMessage(model.RoleAssistant, fmt.Sprintf("a%d", i)),
		)
	}
	restored = append(restored, model.NewSystemMessage("Error: old"))
	s.Conversation().Restore(restored)

	require.NoError(t, s.Send(context.Background(), "latest"))

	sent := api.lastBody()["messages"].([]any)
	var contents []string
	for _, m := range sent[1:] {
		contents = append(contents, m.(map[string]any)["content"].(string))
	}
	assert.Equal(t, []string{"a4", "q5", "a5", "latest"}, contents)
}

func TestSendClaude(t *testing.T) {
	reply := "event: message_start\ndata: {\"type\":\"message_start\"}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Bonjour\"}}\n\n" +
		"event: ping\ndata: {\"type\":\"ping\"}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\" tout\"}}\n\n" +
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"
	api := newFakeAPI(t, reply)
	set := settings.Default()
	set.APIProvider = settings.ProviderClaude
	set.ClaudeAPIKey = "sk-ant"
	set.Model = "gpt-3.5-turbo"
	s := New(Options{Settings: set, Transports: func(provider, apiKey, m string) (cloud.Transport, error) {
		assert.Equal(t, "", m, "an OpenAI model is not sent to Claude")
		return cloud.New(provider, apiKey, cloud.Options{BaseURL: api.srv.URL, Model: m})
	}})

	require.NoError(t, s.Send(context.Background(), "salut"))
	assert.Equal(t, "Bonjour tout", s.Conversation().Last().Content)

	body := api.lastBody()
	assert.Equal(t, Persona, body["system"])
	assert.Equal(t, cloud.DefaultClaudeModel, body["model"])
	sent := body["messages"].([]any)
	require.Len(t, sent, 1)
	assert.Equal(t, "user", sent[0].(map[string]any)["role"])
}

func TestSendBusy(t *testing.T) {
	api := newFakeAPI(t, openAIChunks("slow"))
	api.hold = make(chan struct{})
	s := New(Options{Settings: openAISettings(), Transports: api.transports()})

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "first") }()

	require.Eventually(t, func() bool { return api.requests() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Busy())
	assert.ErrorIs(t, s.Send(context.Background(), "second"), ErrBusy)
	assert.ErrorIs(t, s.Clear(context.Background()), ErrBusy)

	close(api.hold)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"first"}, s.Prompts())
	assert.Equal(t, 2, s.Conversation().Len())
}

func TestSendCanceled(t *testing.T) {
	api := newFakeAPI(t, openAIChunks("never"))
	api.hold = make(chan struct{})
	defer close(api.hold)
	s := New(Options{Settings: openAISettings(), Transports: api.transports()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Send(ctx, "hi") }()
	require.Eventually(t, func() bool { return api.requests() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, s.Conversation().IsStreaming())
	assert.Equal(t, model.RoleSystem, s.Conversation().Last().Role)
}

func TestClear(t *testing.T) {
	api := newFakeAPI(t, openAIChunks("ok"))
	store := newStore(t)
	s := New(Options{Settings: openAISettings(), Transports: api.transports(), Store: store})
	require.NoError(t, s.Send(context.Background(), "hi"))
	rec := &recordedEvents{}
	s.Observe(rec.observe)

	require.NoError(t, s.Clear(context.Background()))
	assert.Zero(t, s.Conversation().Len())
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventCleared, rec.events[0].Kind)

	saved, err := storage.NewHistory(store).LoadConversation(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestRestore(t *testing.T) {
	store := newStore(t)
	hist := storage.NewHistory(store)
	ctx := context.Background()
	require.NoError(t, hist.SaveConversation(ctx, []*model.Message{
		model.NewUserMessage("q"), model.NewMessage(model.RoleAssistant, "a"),
	}))
	require.NoError(t, hist.SavePrompts(ctx, []string{"q", "older"}))

	s := New(Options{Settings: openAISettings(), Store: store})
	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, 2, s.Conversation().Len())
	assert.Equal(t, []string{"q", "older"}, s.Prompts())

	got, ok := s.HistoryBack("draft")
	assert.True(t, ok)
	assert.Equal(t, "q", got)
	got, _ = s.HistoryForward()
	assert.Equal(t, "draft", got)
}

func TestSetTogglesPersist(t *testing.T) {
	store := newStore(t)
	s := New(Options{Settings: openAISettings(), Store: store})
	require.NoError(t, s.SetToggles(context.Background(), ContextFlags{DOM: true}, true))

	loaded, err := settings.Load(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, loaded.IncludeDOM)
	assert.False(t, loaded.IncludeConsole)
	assert.True(t, loaded.EnableTTS)
	assert.True(t, s.Settings().EnableTTS)
}

func TestTransportFuncSendsConfiguredTemperature(t *testing.T) {
	var got cloud.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(body, &got))
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.OpenAI.BaseURL = srv.URL
	cfg.Chat.Temperature = 0
	tr, err := NewTransportFunc(cfg, nil, nil)(cloud.ProviderOpenAI, "sk-test", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", tr.Model())

	got.Temperature = -1
	body, err := tr.Stream(context.Background(), cloud.Request{Messages: []*model.Message{model.NewUserMessage("hi")}})
	require.NoError(t, err)
	_, _ = io.ReadAll(body)
	body.Close()
	assert.Equal(t, float64(0), got.Temperature)
}

func TestOverridesAreNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, openAISettings().Save(ctx, store))
	api := newFakeAPI(t, openAIChunks("ok"))

	s := New(Options{
		Settings:   openAISettings(),
		Store:      store,
		Transports: api.transports(),
		Overrides:  Overrides{DOM: true, TTS: true},
	})
	assert.True(t, s.Settings().IncludeDOM)
	assert.True(t, s.Settings().EnableTTS)
	require.NoError(t, s.Send(ctx, "what is here?"))

	loaded, err := settings.Load(ctx, store)
	require.NoError(t, err)
	assert.False(t, loaded.IncludeDOM, "a one-run toggle must not be saved")
	assert.False(t, loaded.EnableTTS)

	// Explicit toggles replace the overrides.
	require.NoError(t, s.SetToggles(ctx, ContextFlags{Console: true}, false))
	assert.False(t, s.Settings().IncludeDOM)
	assert.True(t, s.Settings().IncludeConsole)
	loaded, err = settings.Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, loaded.IncludeConsole)
}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSynth) Configured() bool { return true }

func (f *fakeSynth) Synthesize(_ context.Context, u speech.Utterance) (io.ReadCloser, error) {
	f.mu.Lock()
	f.texts = append(f.texts, u.Text)
	f.mu.Unlock()
	return io.NopCloser(strings.NewReader("audio")), nil
}

func (f *fakeSynth) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type instantHandle struct{}

func (instantHandle) Wait() error { return nil }
func (instantHandle) Stop()       {}

type instantPlayer struct{}

func (instantPlayer) Play(context.Context, io.Reader) (speech.Handle, error) {
	return instantHandle{}, nil
}

func TestSendSpeech(t *testing.T) {
	long := []string{strings.Repeat("a", 30), strings.Repeat("b", 30), strings.Repeat("c", 30)}
	tests := []struct {
		name  string
		parts []string
		tts   bool
		want  []string
	}{
		{"starts once past threshold", long, true, []string{strings.Repeat("a", 30) + strings.Repeat("b", 30)}},
		{"short reply at end", []string{"Hi", " there"}, true, []string{"Hi there"}},
		{"exactly threshold waits for end", []string{strings.Repeat("x", 50)}, true, []string{strings.Repeat("x", 50)}},
		{"disabled", long, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, openAIChunks(tt.parts...))
			synth := &fakeSynth{}
			ctrl := speech.NewController(synth, instantPlayer{}, nil)
			set := openAISettings()
			set.EnableTTS = tt.tts
			s := New(Options{Settings: set, Transports: api.transports(), Speech: ctrl})

			require.NoError(t, s.Send(context.Background(), "talk"))
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			require.NoError(t, ctrl.Wait(ctx))
			require.Eventually(t, func() bool { return len(synth.spoken()) == len(tt.want) }, 2*time.Second, 5*time.Millisecond)
			assert.Equal(t, tt.want, synth.spoken())
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-context", StateAwaitingContext.String())
	assert.Equal(t, "State(42)", State(42).String())
}
