/*
Package middleware provides store middleware for tabstate.

Generic middleware works with any store:

  - Logging writes one debug line per dispatch.
  - Metrics records dispatch counts, durations, commits and drops in Prometheus.
  - Drop short-circuits matching actions.
  - Translate rewrites actions before they reach the reducers.

Engine is specific to browser state: it owns the engine session of every tab and
turns engine commands into calls on those sessions. Engine work runs off the store's
writer goroutine, one ordered lane per tab, and reports back by dispatching actions.
*/
package middleware
