package runctl

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCancelled is returned by Checkpoint after cancellation. It wraps
// context.Canceled so errors.Is(err, context.Canceled) holds.
var ErrCancelled = fmt.Errorf("run cancelled: %w", context.Canceled)

// State is the run state of a Controller.
type State int

const (
	Running State = iota
	Paused
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Controller is a Running/Paused/Cancelled state machine. The zero value is
// not usable; call New.
type Controller struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State
}

// New returns a running controller.
func New() *Controller {
	c := &Controller{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Pause moves a running controller to Paused. It has no effect once cancelled.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running {
		c.state = Paused
	}
}

// Resume releases a paused controller.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Paused {
		c.state = Running
		c.cond.Broadcast()
	}
}

// Cancel moves the controller to Cancelled and wakes every paused waiter.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Cancelled
	c.cond.Broadcast()
}

// Reset returns the controller to Running for a new run.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Running
	c.cond.Broadcast()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) IsPaused() bool    { return c.State() == Paused }
func (c *Controller) IsCancelled() bool { return c.State() == Cancelled }

// Checkpoint blocks while paused. It returns ErrCancelled when the controller
// is cancelled or ctx is done, and nil otherwise. A nil controller only
// observes ctx.
func (c *Controller) Checkpoint(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return nil
	}

	// Wake waiters when ctx ends so a paused run can observe it.
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state == Paused && ctx.Err() == nil {
		c.cond.Wait()
	}
	if c.state == Cancelled || ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// Bind cancels the controller when ctx is done. The returned function
// detaches the binding.
func (c *Controller) Bind(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, c.Cancel)
}

// IsCancellation reports whether err signals cancellation rather than failure.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
