package store

import "sync"

// OnlyIfChanged wraps then so it only runs when the value selected by mapFn differs
// from the one seen on the previous call. mapFn returns false when there is nothing
// to select; that result is remembered as "absent" and then is not called.
//
// It is typically used to react to one tab's URL or title without running on every
// unrelated change.
func OnlyIfChanged[S any, R comparable](mapFn func(S) (R, bool), then func(S, R)) Observer[S] {
	var (
		mu      sync.Mutex
		last    R
		present bool
	)
	return func(state S) {
		value, ok := mapFn(state)

		mu.Lock()
		changed := ok && (!present || value != last)
		last, present = value, ok
		mu.Unlock()

		if changed {
			then(state, value)
		}
	}
}
