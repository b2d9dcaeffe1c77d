package hctx

import "context"

// State holds per-execution metadata the runtime hands to callbacks
// and middleware through the context.
type State struct {
	JobID  string
	Queue  string
	Action string
}

// New creates a state container for one job execution.
func New(jobID, queue, action string) *State {
	return &State{JobID: jobID, Queue: queue, Action: action}
}

type ctxKey struct{}

// WithState returns a child context carrying the given handler state.
func WithState(parent context.Context, s *State) context.Context {
	return context.WithValue(parent, ctxKey{}, s)
}

// From extracts the handler state from context if present.
func From(ctx context.Context) (*State, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	st, ok := v.(*State)
	return st, ok
}
