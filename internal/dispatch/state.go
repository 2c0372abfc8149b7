package dispatch

import "sync/atomic"

// RunState is the pair of flags shared by the foreground and the worker.
//
// running goes false to true in Begin, called by the foreground before the
// worker starts, and true to false in Finish, called by the worker after its
// session is closed. stopRequested is cleared by Begin and set at most once
// per run by RequestStop.
type RunState struct {
	running       atomic.Bool
	stopRequested atomic.Bool
}

// Begin marks a run active and clears any earlier stop request. It returns
// false if a run is already active.
func (s *RunState) Begin() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.stopRequested.Store(false)
	return true
}

// Finish marks the run inactive. It returns false if no run was active.
func (s *RunState) Finish() bool {
	return s.running.CompareAndSwap(true, false)
}

// RequestStop asks the worker to stop before its next message. It returns
// false if there is no active run or a stop was already requested.
func (s *RunState) RequestStop() bool {
	if !s.running.Load() {
		return false
	}
	return s.stopRequested.CompareAndSwap(false, true)
}

func (s *RunState) StopRequested() bool { return s.stopRequested.Load() }

func (s *RunState) Running() bool { return s.running.Load() }
