// Package console is the line-oriented foreground: it polls the relay on a
// fixed cadence and prints new records as they arrive.
package console

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xkilldash9x/courier-cli/internal/relay"
)

const defaultInterval = time.Second

var kindStyles = map[relay.Kind]lipgloss.Style{
	relay.KindInfo:    lipgloss.NewStyle(),
	relay.KindSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	relay.KindWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	relay.KindError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	relay.KindDone:    lipgloss.NewStyle().Faint(true),
}

// Style returns the rendering style for a record kind.
func Style(k relay.Kind) lipgloss.Style {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return kindStyles[relay.KindInfo]
}

// Render formats rec with its kind's style.
func Render(rec relay.Record) string {
	return Style(rec.Kind).Render(rec.Format())
}

// Loop drains a relay into a history and writes each record to out.
type Loop struct {
	relay    *relay.Relay
	history  *relay.History
	out      io.Writer
	interval time.Duration
}

// New creates a loop. A non-positive interval means one second.
func New(rl *relay.Relay, history *relay.History, out io.Writer, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Loop{relay: rl, history: history, out: out, interval: interval}
}

// Run polls until the worker's sentinel is seen, returning nil, or until ctx
// is done, returning its error.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		done, err := l.Flush()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Flush drains pending records once. It reports whether the sentinel was
// among them.
func (l *Loop) Flush() (bool, error) {
	records := l.relay.Drain()
	if len(records) == 0 {
		return false, nil
	}
	l.history.Append(records...)

	done := false
	for _, rec := range records {
		if rec.IsDone() {
			done = true
			continue
		}
		if _, err := fmt.Fprintln(l.out, Render(rec)); err != nil {
			return done, fmt.Errorf("failed to write log record: %w", err)
		}
	}
	return done, nil
}

// PrintRecent writes the newest n records of the history, newest first.
func PrintRecent(w io.Writer, history *relay.History, n int) error {
	for _, rec := range history.Recent(n) {
		if rec.IsDone() {
			continue
		}
		if _, err := fmt.Fprintln(w, Render(rec)); err != nil {
			return err
		}
	}
	return nil
}
