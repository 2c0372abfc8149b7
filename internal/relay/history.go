package relay

import "sync"

// DefaultHistorySize and DefaultDisplaySize are the retained and rendered
// record counts used by the foreground surfaces.
const (
	DefaultHistorySize = 100
	DefaultDisplaySize = 50
)

// History is a bounded ring of the most recent records. When full, the
// oldest record is discarded first.
type History struct {
	mu    sync.RWMutex
	buf   []Record
	start int
	size  int
}

// NewHistory creates a ring holding at most capacity records.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]Record, capacity)}
}

// Append adds records in order.
func (h *History) Append(records ...Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, rec := range records {
		if h.size < len(h.buf) {
			h.buf[(h.start+h.size)%len(h.buf)] = rec
			h.size++
			continue
		}
		h.buf[h.start] = rec
		h.start = (h.start + 1) % len(h.buf)
	}
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Recent returns up to n of the newest records, newest first.
func (h *History) Recent(n int) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n > h.size {
		n = h.size
	}
	if n < 0 {
		n = 0
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.start+h.size-1-i)%len(h.buf)]
	}
	return out
}

// Clear drops every retained record.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.start, h.size = 0, 0
}
