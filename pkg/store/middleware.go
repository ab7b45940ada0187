package store

// MiddlewareStore is the view of the store handed to middleware. It allows reads of
// the committed state and dispatching of follow-up actions, which are queued as new,
// separate cycles.
type MiddlewareStore[S, A any] interface {
	State() S
	Revision() uint64
	Dispatch(action A)
}

// Next continues the middleware chain.
type Next[A any] func(action A)

// Middleware intercepts an action on its way to the reducers.
//
// A middleware must call next exactly once to let the action continue, possibly
// with a different action, or not at all to drop it. Work placed before next
// observes the state as it was; work placed after next observes the state
// committed for this action.
type Middleware[S, A any] func(store MiddlewareStore[S, A], next Next[A], action A)

// Hooks adapts a pair of before/after callbacks into a Middleware.
type Hooks[S, A any] struct {
	// Before may replace the action. Returning false drops it.
	Before func(store MiddlewareStore[S, A], action A) (A, bool)
	// After runs once the action has been reduced and committed.
	After func(store MiddlewareStore[S, A], action A)
}

// Middleware returns the hooks as a Middleware.
func (h Hooks[S, A]) Middleware() Middleware[S, A] {
	return func(store MiddlewareStore[S, A], next Next[A], action A) {
		if h.Before != nil {
			var ok bool
			action, ok = h.Before(store, action)
			if !ok {
				return
			}
		}
		next(action)
		if h.After != nil {
			h.After(store, action)
		}
	}
}

// buildChain nests middleware around terminal so that middleware[0] runs first.
func buildChain[S, A any](store MiddlewareStore[S, A], middleware []Middleware[S, A], terminal Next[A]) Next[A] {
	next := terminal
	for i := len(middleware) - 1; i >= 0; i-- {
		mw, inner := middleware[i], next
		next = func(action A) {
			mw(store, inner, action)
		}
	}
	return next
}
