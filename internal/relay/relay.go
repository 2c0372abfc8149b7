// Package relay carries human-readable progress records from the background
// dispatch worker to whichever foreground surface is rendering them.
package relay

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind classifies a record for rendering. KindDone is reserved for the
// sentinel emitted after the worker has released its browser session.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarn
	KindError
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindWarn:
		return "warn"
	case KindError:
		return "error"
	case KindDone:
		return "done"
	default:
		return "info"
	}
}

// DefaultSource is the tag stamped on records when none is configured.
const DefaultSource = "AUTO-1"

// Record is one log line.
type Record struct {
	Time   time.Time
	Source string
	Kind   Kind
	Text   string
	// Seq increases by one per Emit and exposes emission order.
	Seq uint64
}

// IsDone reports whether r is the worker-finished sentinel.
func (r Record) IsDone() bool { return r.Kind == KindDone }

// Format renders the record the way the operator sees it: "[15:04:05] AUTO-1: text".
func (r Record) Format() string {
	return "[" + r.Time.Format("15:04:05") + "] " + r.Source + ": " + r.Text
}

// Relay is an unbounded FIFO between any number of producers and a single
// consumer. Emit never blocks on the consumer.
type Relay struct {
	mu      sync.Mutex
	pending []Record
	seq     uint64
	source  string
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Relay that stamps records with source and mirrors each
// record to logger.
func New(source string, logger *zap.Logger) *Relay {
	if source == "" {
		source = DefaultSource
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		source: source,
		logger: logger.Named("relay"),
		now:    time.Now,
	}
}

// Emit appends a record. Safe from any goroutine.
func (r *Relay) Emit(kind Kind, text string) {
	r.mu.Lock()
	r.seq++
	rec := Record{Time: r.now(), Source: r.source, Kind: kind, Text: text, Seq: r.seq}
	r.pending = append(r.pending, rec)
	r.mu.Unlock()

	r.mirror(rec)
}

// Info, Success, Warn and Error are shorthands for Emit.
func (r *Relay) Info(text string)    { r.Emit(KindInfo, text) }
func (r *Relay) Success(text string) { r.Emit(KindSuccess, text) }
func (r *Relay) Warn(text string)    { r.Emit(KindWarn, text) }
func (r *Relay) Error(text string)   { r.Emit(KindError, text) }

// Done emits the sentinel record. It must only be called after the worker
// has closed its browser session.
func (r *Relay) Done() { r.Emit(KindDone, "worker finished") }

// Drain atomically removes and returns every queued record in emission order.
// It returns nil when nothing is queued.
func (r *Relay) Drain() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	out := r.pending
	r.pending = nil
	return out
}

func (r *Relay) mirror(rec Record) {
	fields := []zap.Field{zap.String("source", rec.Source), zap.Uint64("seq", rec.Seq)}
	switch rec.Kind {
	case KindWarn:
		r.logger.Warn(rec.Text, fields...)
	case KindError:
		r.logger.Error(rec.Text, fields...)
	case KindDone:
		r.logger.Debug(rec.Text, fields...)
	default:
		r.logger.Info(rec.Text, fields...)
	}
}
