package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/credentials"
	"github.com/xkilldash9x/courier-cli/internal/observability"
)

// resetForTest isolates the global logger and the launcher hook.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	orig := newLauncher
	t.Cleanup(func() {
		newLauncher = orig
		observability.ResetForTest()
	})
}

// writeConfig creates a config file that keeps logs inside the test's temp
// directory and redraws quickly.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "courier.yaml")
	body := "logger:\n  level: debug\n  log_file: " + filepath.Join(dir, "courier.log") + "\n" +
		"ui:\n  redraw_interval: 10ms\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// defaultConfig builds a validated configuration from the registered defaults.
func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// stubSession accepts everything and records what it sent.
type stubSession struct {
	mu      sync.Mutex
	landing string
	sent    []string
	closes  int
}

func (s *stubSession) InjectCredentials(_ context.Context, creds []credentials.Credential) browser.Injection {
	return browser.Injection{Applied: len(creds)}
}

func (s *stubSession) Navigate(_ context.Context, url string, _ time.Duration) (browser.PageState, error) {
	if s.landing != "" {
		return browser.PageState{URL: s.landing}, nil
	}
	return browser.PageState{URL: url, Title: "Messenger"}, nil
}

func (s *stubSession) ResolveInput(context.Context, []string) (browser.Element, error) {
	return browser.Element{Matches: 1}, nil
}

func (s *stubSession) SendMessage(_ context.Context, _ browser.Element, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *stubSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

type stubLauncher struct{ session *stubSession }

func (l stubLauncher) Open(context.Context) (browser.Session, error) { return l.session, nil }

func useStubLauncher(s *stubSession) {
	newLauncher = func(config.Interface, *zap.Logger) browser.Launcher { return stubLauncher{session: s} }
}
