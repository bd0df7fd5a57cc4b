// Package scope implements the two-phase resource scopes that plugins
// contribute to a request, and the composer that drives them as one atomic
// enter/exit operation around request handling.
//
// A participant follows a strict protocol: Start runs setup and returns once
// the resource is ready (or with an error), and Finish is called exactly once
// per started participant, in reverse start order, receiving the error
// currently propagating through teardown, if any. Participants built with
// Func get the stronger generator-style contract checked at runtime; breaking
// it is reported as a protocol violation, distinct from ordinary failures.
package scope

// Participant is a per-request resource scope with explicit setup and
// teardown phases.
type Participant interface {
	// Start runs setup. Returning nil means the resource is ready and
	// Finish will be called exactly once later. Returning an error marks
	// this participant as the failure point; Finish will not be called.
	Start() error

	// Finish runs teardown and is called exactly once after a successful
	// Start. cause is the error currently propagating through teardown,
	// or nil on the clean path. The return value drives error
	// supersession in the composer:
	//
	//   - return cause unchanged to propagate it
	//   - return a different error to supersede it (the composer chains
	//     cause as the new error's cause)
	//   - return nil to report clean teardown; during exit this clears
	//     the propagating error, during enter-unwind it does not
	Finish(cause error) error
}

// State is the lifecycle state of a Composer.
type State int

const (
	// StatePending indicates the composer was created but not entered.
	StatePending State = iota
	// StateEntering indicates participants are being started in order.
	StateEntering
	// StateActive indicates every participant started; the handler may run.
	StateActive
	// StateExiting indicates participants are being finished in reverse.
	StateExiting
	// StateDone indicates the lifecycle completed, with or without error.
	StateDone
)

// String returns a string representation of the composer state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEntering:
		return "entering"
	case StateActive:
		return "active"
	case StateExiting:
		return "exiting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
