package scope

import (
	"fmt"

	"github.com/guyskk/weirb-hrpc/errors"
)

// Composer orchestrates the ordered enter/exit of all scope participants
// contributed to one request. Enter order equals declaration order; exit
// order is the exact reverse, always, regardless of success or failure.
//
// A Composer belongs to a single request lifecycle and is not safe for
// concurrent use.
type Composer struct {
	participants []Participant
	state        State
	started      int
}

// NewComposer creates a composer over participants in declaration order.
func NewComposer(participants []Participant) *Composer {
	return &Composer{participants: participants, state: StatePending}
}

// State returns the current lifecycle state.
func (c *Composer) State() State { return c.state }

// Enter starts every participant in declaration order. On the first failure
// it unwinds the already-started participants in reverse order, injecting
// the current error into each; every new error raised during the unwind
// supersedes the current one and records it as cause. Enter returns nil
// when all participants started, otherwise the final current error.
func (c *Composer) Enter() error {
	if c.state != StatePending {
		return errors.NewProtocolViolation("composer", "Enter called in state %s", c.state)
	}
	c.state = StateEntering

	for i, p := range c.participants {
		err := safeStart(p)
		if err == nil {
			c.started = i + 1
			continue
		}
		// Failure point: unwind 0..i-1 in reverse with the current error.
		current := err
		for j := i - 1; j >= 0; j-- {
			res := safeFinish(c.participants[j], current)
			if res == nil || res == current {
				// Clean completion during unwind propagates the
				// current error unchanged.
				continue
			}
			current = errors.Chain(res, current)
		}
		c.state = StateDone
		return current
	}

	c.state = StateActive
	return nil
}

// Exit finishes every started participant in reverse order. cause is the
// handling outcome's error, or nil when the handler succeeded. Each
// participant is resumed with the current error if one exists; a
// participant returning a different error supersedes the current one
// (chaining it as cause), and returning nil clears it. Exit returns the
// final current error, or nil when teardown completed cleanly.
//
// Exit always runs over the full reverse sequence; cancellation of the
// outer request does not shortcut teardown.
func (c *Composer) Exit(cause error) error {
	if c.state != StateActive {
		return errors.NewProtocolViolation("composer", "Exit called in state %s", c.state)
	}
	c.state = StateExiting

	current := cause
	for i := c.started - 1; i >= 0; i-- {
		res := safeFinish(c.participants[i], current)
		if current == nil {
			current = res
			continue
		}
		switch {
		case res == nil:
			// Participant absorbed the error and completed cleanly.
			current = nil
		case res == current:
			// Propagated unchanged.
		default:
			current = errors.Chain(res, current)
		}
	}

	c.state = StateDone
	return current
}

// safeStart invokes Start, converting a panic into an error so a misbehaving
// participant cannot skip the unwind of its predecessors.
func safeStart(p Participant) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during scope enter: %v", r)
		}
	}()
	return p.Start()
}

// safeFinish invokes Finish, converting a panic into an error so teardown
// of the remaining participants still runs.
func safeFinish(p Participant, cause error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during scope exit: %v", r)
		}
	}()
	return p.Finish(cause)
}
