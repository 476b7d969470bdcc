package loader

import "sync/atomic"

// State is the lifecycle of a single-use loader.
type State int32

const (
	// NotStarted loaders accept one Load call.
	NotStarted State = iota
	// Completed loaders reject every further Load call.
	Completed
)

// Guard enforces the single-use contract shared by every loader.
type Guard struct {
	state atomic.Int32
}

// Begin moves the guard to Completed, failing with ErrAlreadyConsumed if it was not NotStarted.
func (guard *Guard) Begin() error {
	if !guard.state.CompareAndSwap(int32(NotStarted), int32(Completed)) {
		return ErrAlreadyConsumed
	}
	return nil
}

// State returns the current lifecycle state.
func (guard *Guard) State() State {
	return State(guard.state.Load())
}
