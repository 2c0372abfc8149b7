package dispatch

import (
	"context"
	"sync"
)

// Controller is the foreground's handle on the background worker. At most
// one worker runs at a time.
type Controller struct {
	engine *Engine
	state  *RunState

	mu   sync.Mutex
	wg   sync.WaitGroup
	last *Summary
}

// NewController binds a controller to engine and the state it shares.
func NewController(engine *Engine, state *RunState) *Controller {
	return &Controller{engine: engine, state: state}
}

// Start launches a worker for job. It returns ErrRunActive while a previous
// run has not yet finished.
func (c *Controller) Start(ctx context.Context, job Job, rawCredentials string) error {
	if !c.state.Begin() {
		return ErrRunActive
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		sum := c.engine.Run(ctx, job, rawCredentials)
		c.mu.Lock()
		c.last = &sum
		c.mu.Unlock()
	}()
	return nil
}

// Stop requests a cooperative stop. The message in flight, if any, is
// allowed to finish. It reports whether a new request was recorded.
func (c *Controller) Stop() bool {
	if !c.state.RequestStop() {
		return false
	}
	c.engine.relay.Warn("Stop requested")
	return true
}

// Running reports whether a worker is active.
func (c *Controller) Running() bool { return c.state.Running() }

// Wait blocks until the current worker, if any, has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Last returns the summary of the most recently finished run.
func (c *Controller) Last() (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Summary{}, false
	}
	return *c.last, true
}
