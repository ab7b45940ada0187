/*
Package store implements the unidirectional state container that drives tabstate.

A Store owns a single immutable state value. Callers never mutate it directly: they
describe intended changes as actions and hand them to Dispatch. Every action travels
through the same pipeline, one at a time, on the store's writer goroutine:

	Dispatch(a) -> queue -> mw1(mw2(...mwN(reduce)...)) -> commit -> notify

Reducers are pure functions folded in order. Middleware wraps the reduce step and may
translate, drop, or react to actions; side effects that need the store again do so by
dispatching a new action, which is queued behind the current one.

Subscriptions receive every committed state in commit order. They can be paused,
resumed, and unsubscribed, either by hand or through a Binding that maps a host
lifecycle (an owner that starts and stops, a view that attaches and detaches, a
context that is cancelled) onto those calls.

# Usage

	s := store.New(State{}, []store.Reducer[State, Action]{reduce}, nil)
	defer s.Close(context.Background())

	sub := s.Observe(true, func(st State) {
		fmt.Println(st.Count)
	})
	defer sub.Unsubscribe()

	s.Dispatch(Increment{})
*/
package store
