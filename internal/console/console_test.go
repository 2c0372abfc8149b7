package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/courier-cli/internal/relay"
)

func TestLoop_StopsOnSentinel(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := relay.New("AUTO-1", nil)
	hist := relay.NewHistory(100)
	var out bytes.Buffer
	loop := New(rl, hist, &out, 5*time.Millisecond)

	go func() {
		rl.Info("Starting automation...")
		time.Sleep(20 * time.Millisecond)
		rl.Success("Message 1 sent!")
		rl.Done()
	}()

	require.NoError(t, loop.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "the sentinel is not printed")
	assert.Contains(t, lines[0], "AUTO-1: Starting automation...")
	assert.Contains(t, lines[1], "AUTO-1: Message 1 sent!")
	assert.Equal(t, 3, hist.Len(), "history keeps every drained record")
}

func TestLoop_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loop := New(relay.New("", nil), relay.NewHistory(10), &bytes.Buffer{}, time.Hour)
	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestFlush_WriteError(t *testing.T) {
	rl := relay.New("", nil)
	rl.Info("x")
	_, err := New(rl, relay.NewHistory(10), failingWriter{}, 0).Flush()
	assert.ErrorContains(t, err, "closed pipe")
}

func TestPrintRecent(t *testing.T) {
	hist := relay.NewHistory(100)
	for i := 1; i <= 60; i++ {
		hist.Append(relay.Record{Source: "AUTO-1", Text: "r" + strings.Repeat("x", i%3), Seq: uint64(i)})
	}
	hist.Append(relay.Record{Kind: relay.KindDone, Seq: 61})

	var out bytes.Buffer
	require.NoError(t, PrintRecent(&out, hist, 50))
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 49, "the sentinel counts toward the window but is hidden")
}
