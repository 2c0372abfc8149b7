package dispatch

// Status is the per-message result.
type Status int

const (
	StatusSent Status = iota
	StatusSkipped
)

func (s Status) String() string {
	if s == StatusSent {
		return "sent"
	}
	return "skipped"
}

// Outcome records what happened to one message.
type Outcome struct {
	Index int
	Text  string
	// Strategy is the winning locator index, or -1 when none matched.
	Strategy int
	Status   Status
	// Reason is set for skipped messages and wraps ErrElementNotFound or
	// ErrSendProtocol.
	Reason error
}

// Terminal is how a run ended.
type Terminal int

const (
	TerminalCompleted Terminal = iota
	TerminalStopped
	TerminalFailed
)

func (t Terminal) String() string {
	switch t {
	case TerminalStopped:
		return "stopped"
	case TerminalFailed:
		return "failed"
	default:
		return "completed"
	}
}

// Summary is the result of Engine.Run.
type Summary struct {
	RunID    string
	Terminal Terminal
	Outcomes []Outcome
	// Unsent counts messages without an outcome: never reached, or
	// interrupted by a panic.
	Unsent int
	// Err is the setup failure behind TerminalFailed.
	Err error
}

// Sent counts outcomes with StatusSent.
func (s Summary) Sent() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == StatusSent {
			n++
		}
	}
	return n
}

// Skipped counts outcomes with StatusSkipped.
func (s Summary) Skipped() int { return len(s.Outcomes) - s.Sent() }
