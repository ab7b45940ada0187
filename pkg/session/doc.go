/*
Package session keeps the browser stores of several windows side by side.

Each window id maps to its own store, with its own writer goroutine and, when an
engine is configured, its own engine middleware. Windows are reference counted:
Open creates a window or returns the live one, Release closes it when the last
holder lets go.

When a DistributedLocker is configured, opening a window also takes a lease on its
id, so that replicas sharing the locker never run two writers for the same window.
*/
package session
