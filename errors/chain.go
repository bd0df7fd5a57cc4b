package errors

// chained attaches a superseded teardown error to the error that replaced
// it. Both remain reachable through errors.Is/As via Unwrap, and the
// superseded error is retrievable by identity through Cause.
type chained struct {
	err   error // the current (latest) error
	cause error // the error it superseded
}

// Error implements the error interface.
func (c *chained) Error() string { return c.err.Error() }

// Unwrap exposes both the current error and its cause to errors.Is/As.
func (c *chained) Unwrap() []error { return []error{c.err, c.cause} }

// Cause returns the superseded error.
func (c *chained) Cause() error { return c.cause }

// Chain records cause as the superseded predecessor of err. During teardown
// at most one error is current; every newly raised error supersedes the
// previous one and carries it as cause. Chain is a no-op when either side
// is nil or when err already is cause.
func Chain(err, cause error) error {
	if err == nil {
		return cause
	}
	if cause == nil || err == cause {
		return err
	}
	return &chained{err: err, cause: cause}
}

// Cause returns the error superseded by err during teardown, or nil if err
// carries no cause. The returned error preserves identity: it is the exact
// value that was current before err superseded it.
func Cause(err error) error {
	if c, ok := err.(*chained); ok {
		return c.cause
	}
	return nil
}

// Current returns the latest error in a teardown chain: the one that
// superseded everything before it. Superseded causes stay reachable through
// Unwrap for diagnostics, but only the current error decides how the request
// outcome is reported.
func Current(err error) error {
	for {
		c, ok := err.(*chained)
		if !ok {
			return err
		}
		err = c.err
	}
}
