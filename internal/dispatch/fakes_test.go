package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/credentials"
	"github.com/xkilldash9x/courier-cli/internal/relay"
)

// fakeSession scripts a browser session. Per-message behaviour is keyed by
// the zero-based message index, counted from ResolveInput calls.
type fakeSession struct {
	mu sync.Mutex

	landing     string
	rootErr     error
	threadErr   error
	resolveErrs map[int]error
	sendErrs    map[int]error
	rejected    map[string]bool
	// onSent runs after message i was accepted, while the worker is still
	// inside SendMessage.
	onSent func(i int)
	// panicAt makes SendMessage panic for the given index.
	panicAt int

	resolveCalls int
	navigated    []string
	injected     []credentials.Credential
	sent         []string
	closes       int
}

func newFakeSession() *fakeSession {
	return &fakeSession{landing: "https://www.facebook.com/messages/t/555", panicAt: -1}
}

func (f *fakeSession) InjectCredentials(_ context.Context, creds []credentials.Credential) browser.Injection {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res browser.Injection
	for _, c := range creds {
		if f.rejected[c.Name] {
			res.Failures = append(res.Failures, browser.CookieFailure{Name: c.Name, Err: errors.New("invalid cookie fields")})
			continue
		}
		f.injected = append(f.injected, c)
		res.Applied++
	}
	return res
}

func (f *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) (browser.PageState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	if strings.Contains(url, "/messages/t/") {
		if f.threadErr != nil {
			return browser.PageState{}, f.threadErr
		}
		return browser.PageState{URL: f.landing, Title: "Messenger"}, nil
	}
	if f.rootErr != nil {
		return browser.PageState{}, f.rootErr
	}
	return browser.PageState{URL: url, Title: "Facebook - log in or sign up"}, nil
}

func (f *fakeSession) ResolveInput(_ context.Context, locators []string) (browser.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.resolveCalls
	f.resolveCalls++
	if err := f.resolveErrs[i]; err != nil {
		return browser.Element{}, err
	}
	return browser.Element{Strategy: 0, Selector: locators[0], Matches: 1, NodeID: 42}, nil
}

func (f *fakeSession) SendMessage(_ context.Context, _ browser.Element, text string) error {
	f.mu.Lock()
	i := f.resolveCalls - 1
	if i == f.panicAt {
		f.mu.Unlock()
		panic("renderer crashed")
	}
	if err := f.sendErrs[i]; err != nil {
		f.mu.Unlock()
		return err
	}
	f.sent = append(f.sent, text)
	hook := f.onSent
	f.mu.Unlock()

	if hook != nil {
		hook(i)
	}
	return nil
}

func (f *fakeSession) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeSession) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeSession) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeLauncher struct {
	session *fakeSession
	err     error
	opens   int
}

func (l *fakeLauncher) Open(context.Context) (browser.Session, error) {
	l.opens++
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

// sleepRecorder replaces real waits and records the requested durations.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type harness struct {
	session  *fakeSession
	launcher *fakeLauncher
	relay    *relay.Relay
	state    *RunState
	sleeps   *sleepRecorder
	engine   *Engine
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		session: newFakeSession(),
		relay:   relay.New("AUTO-1", nil),
		state:   &RunState{},
		sleeps:  &sleepRecorder{},
	}
	h.launcher = &fakeLauncher{session: h.session}
	h.engine = NewEngine(defaultConfig(t), h.launcher, h.relay, h.state, zaptest.NewLogger(t),
		WithSleep(h.sleeps.sleep),
		WithRunID(func() string { return "run-1" }),
	)
	return h
}

// run begins a run on the shared state and executes job synchronously.
func (h *harness) run(ctx context.Context, job Job, creds string) Summary {
	if !h.state.Begin() {
		panic("run already active")
	}
	return h.engine.Run(ctx, job, creds)
}

func texts(records []relay.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

func countContaining(records []relay.Record, kind relay.Kind, substr string) int {
	n := 0
	for _, r := range records {
		if r.Kind == kind && strings.Contains(r.Text, substr) {
			n++
		}
	}
	return n
}
