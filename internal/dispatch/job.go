package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Job is one run's work. It is not modified once the run starts.
type Job struct {
	ThreadID string
	Messages []string
	Delay    time.Duration
}

// ParseMessages splits raw on newlines, trims each line and drops blank ones.
func ParseMessages(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// NewJob validates the thread and delay and parses rawMessages. An empty
// message list is accepted here and reported by the run.
func NewJob(threadID, rawMessages string, delay time.Duration) (Job, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return Job{}, fmt.Errorf("%w: thread id is required", ErrInvalidJob)
	}
	if err := config.ValidateDelay(delay); err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	return Job{ThreadID: threadID, Messages: ParseMessages(rawMessages), Delay: delay}, nil
}
