// Package dispatch runs one message job against a browser session: launch,
// authenticate with cookies, open the thread, then send each message in
// order with a fixed pause between sends.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/credentials"
	"github.com/xkilldash9x/courier-cli/internal/relay"
)

const (
	errorTextLimit   = 100
	messageTextLimit = 50
)

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Engine executes dispatch jobs. It is safe to reuse across runs, but runs
// must not overlap; the Controller enforces that.
type Engine struct {
	launcher browser.Launcher
	relay    *relay.Relay
	state    *RunState
	target   config.TargetConfig
	settings config.DispatchConfig
	logger   *zap.Logger

	sleep    SleepFunc
	newRunID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSleep replaces the wait used for delays and backoff.
func WithSleep(fn SleepFunc) Option {
	return func(e *Engine) { e.sleep = fn }
}

// WithRunID replaces the run id generator.
func WithRunID(fn func() string) Option {
	return func(e *Engine) { e.newRunID = fn }
}

// NewEngine wires an engine from configuration.
func NewEngine(cfg config.Interface, launcher browser.Launcher, rl *relay.Relay, state *RunState, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		launcher: launcher,
		relay:    rl,
		state:    state,
		target:   cfg.Target(),
		settings: cfg.Dispatch(),
		logger:   logger.Named("dispatch"),
		sleep:    sleepContext,
		newRunID: func() string { return uuid.NewString() },
	}
	if len(e.settings.Locators) == 0 {
		e.settings.Locators = config.DefaultLocators
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes job. The caller must have called RunState.Begin; Run calls
// Finish on its way out, after the session is closed and before the sentinel
// is queued, so a foreground that sees the sentinel may start the next run.
// Run never panics and never returns an error: every exit is reported in the
// Summary and as relay records.
func (e *Engine) Run(ctx context.Context, job Job, rawCredentials string) (sum Summary) {
	sum.RunID = e.newRunID()
	log := e.logger.With(zap.String("run_id", sum.RunID), zap.String("thread_id", job.ThreadID))

	var session browser.Session
	defer func() {
		if r := recover(); r != nil {
			log.Error("Dispatch panicked.", zap.Any("panic", r), zap.Stack("stack"))
			sum.Terminal = TerminalFailed
			sum.Err = fmt.Errorf("dispatch panicked: %v", r)
			e.relay.Error("Critical error: " + truncate(fmt.Sprint(r), errorTextLimit))
		}
		if session != nil {
			if err := session.Close(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Session close failed.", zap.Error(err))
			}
			e.relay.Info("Browser closed")
		}
		sum.Unsent = len(job.Messages) - len(sum.Outcomes)
		e.reportTerminal(sum)
		log.Info("Run finished.",
			zap.Stringer("terminal", sum.Terminal),
			zap.Int("sent", sum.Sent()),
			zap.Int("skipped", sum.Skipped()),
			zap.Int("unsent", sum.Unsent),
			zap.Error(sum.Err),
		)
		e.state.Finish()
		e.relay.Done()
	}()

	e.relay.Info("Starting automation...")
	log.Info("Run started.", zap.Int("messages", len(job.Messages)), zap.Duration("delay", job.Delay))

	if len(job.Messages) == 0 {
		return e.fail(sum, ErrEmptyMessageQueue)
	}
	creds := credentials.Normalize(rawCredentials, e.target.RootDomain, e.logger)
	if len(creds) == 0 {
		return e.fail(sum, ErrCredentialParse)
	}
	log.Debug("Credentials parsed.", zap.Strings("names", credentials.Names(creds)))

	// Launching
	e.relay.Info("Setting up Chrome browser...")
	s, err := e.launcher.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return e.stopped(sum)
		}
		return e.fail(sum, fmt.Errorf("%w: %w", ErrDriverUnavailable, err))
	}
	session = s
	e.relay.Success("Chrome setup completed!")

	// Authenticating
	e.relay.Info("Navigating to " + e.target.BaseURL)
	page, err := session.Navigate(ctx, e.target.BaseURL, e.target.RootSettle)
	if err != nil {
		if ctx.Err() != nil {
			return e.stopped(sum)
		}
		return e.fail(sum, fmt.Errorf("%w: root page did not load: %w", ErrDriverUnavailable, err))
	}
	e.relay.Info("Page loaded: " + truncate(page.Title, messageTextLimit))

	e.relay.Info(fmt.Sprintf("Adding %d cookies...", len(creds)))
	inj := session.InjectCredentials(ctx, creds)
	for _, f := range inj.Failures {
		e.relay.Warn(fmt.Sprintf("Cookie failed: %s (%s)", truncate(f.Name, 20), truncate(f.Err.Error(), errorTextLimit)))
	}
	e.relay.Info(fmt.Sprintf("Applied %d/%d cookies", inj.Applied, len(creds)))
	if ctx.Err() != nil {
		return e.stopped(sum)
	}

	// Navigating
	threadURL := e.target.ThreadURL(job.ThreadID)
	e.relay.Info("Opening conversation: " + job.ThreadID)
	page, err = session.Navigate(ctx, threadURL, e.target.ThreadSettle)
	if err != nil {
		if ctx.Err() != nil {
			return e.stopped(sum)
		}
		return e.fail(sum, fmt.Errorf("%w: thread did not load: %w", ErrDriverUnavailable, err))
	}
	e.relay.Info("URL: " + page.URL)
	if browser.IsLoginRedirect(page.URL, e.target.LoginMarkers) {
		return e.fail(sum, fmt.Errorf("%w: redirected to %s", ErrAuthenticationRejected, page.URL))
	}

	// Sending
	total := len(job.Messages)
	e.relay.Info(fmt.Sprintf("Messages to send: %d", total))
	for i, text := range job.Messages {
		if e.state.StopRequested() || ctx.Err() != nil {
			return e.stopped(sum)
		}

		e.relay.Info(fmt.Sprintf("Message %d/%d", i+1, total))
		out := e.sendOne(ctx, session, i, text)
		sum.Outcomes = append(sum.Outcomes, out)

		if i == total-1 {
			break
		}
		switch {
		case out.Status == StatusSent:
			_ = e.sleep(ctx, job.Delay)
		case errors.Is(out.Reason, ErrSendProtocol):
			_ = e.sleep(ctx, e.settings.ErrorBackoff)
		}
	}

	sum.Terminal = TerminalCompleted
	return sum
}

// sendOne resolves the composer and runs the send protocol for message i.
// Failures are returned as a skipped Outcome.
func (e *Engine) sendOne(ctx context.Context, session browser.Session, i int, text string) Outcome {
	out := Outcome{Index: i, Text: text, Strategy: -1}

	el, err := session.ResolveInput(ctx, e.settings.Locators)
	if err != nil {
		out.Status = StatusSkipped
		out.Reason = fmt.Errorf("%w: %w", ErrElementNotFound, err)
		e.relay.Error(fmt.Sprintf("Message %d skipped: message input not found", i+1))
		e.logger.Warn("Input not found.", zap.Int("index", i), zap.Error(err))
		return out
	}
	out.Strategy = el.Strategy
	e.relay.Success(fmt.Sprintf("Selector %d: %d found", el.Strategy+1, el.Matches))

	e.relay.Info("Typing: " + truncate(text, messageTextLimit) + "...")
	if err := session.SendMessage(ctx, el, text); err != nil {
		out.Status = StatusSkipped
		out.Reason = fmt.Errorf("%w: %w", ErrSendProtocol, err)
		e.relay.Error(fmt.Sprintf("Message %d error: %s", i+1, truncate(err.Error(), errorTextLimit)))
		e.logger.Warn("Send failed.", zap.Int("index", i), zap.Error(err))
		return out
	}

	out.Status = StatusSent
	e.relay.Success(fmt.Sprintf("Message %d sent!", i+1))
	return out
}

func (e *Engine) fail(sum Summary, err error) Summary {
	sum.Terminal = TerminalFailed
	sum.Err = err
	e.relay.Error(truncate(err.Error(), errorTextLimit))
	return sum
}

func (e *Engine) stopped(sum Summary) Summary {
	sum.Terminal = TerminalStopped
	return sum
}

// reportTerminal emits the one record that says how the run ended.
func (e *Engine) reportTerminal(sum Summary) {
	switch sum.Terminal {
	case TerminalCompleted:
		e.relay.Success(fmt.Sprintf("Automation completed! %d sent, %d skipped", sum.Sent(), sum.Skipped()))
	case TerminalStopped:
		e.relay.Warn(fmt.Sprintf("Stopped by user, %d unsent", sum.Unsent))
	case TerminalFailed:
		e.relay.Error("Automation failed")
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
