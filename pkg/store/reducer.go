package store

// Reducer computes the next state from the current state and an action.
//
// Reducers must be pure: no I/O, no mutation of the input, and deterministic.
// An action the reducer does not handle must return the input state unchanged.
type Reducer[S, A any] func(state S, action A) S

// Chain composes reducers into one. Each reducer receives the output of the
// previous one.
func Chain[S, A any](reducers ...Reducer[S, A]) Reducer[S, A] {
	return func(state S, action A) S {
		for _, reduce := range reducers {
			state = reduce(state, action)
		}
		return state
	}
}

// Conflict reports that more than one reducer changed the state for one action.
type Conflict struct {
	Action any
	// Reducers holds the positions, in registration order, of the reducers that
	// produced a change.
	Reducers []int
}
