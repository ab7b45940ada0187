/*
Package domain contains the browser state model and the actions that change it.

Everything here is plain data: no I/O, no goroutines, no dependency on how the state
is stored or observed. Reducers live in package browser and the runtime that applies
them lives in package store.

# Key Entities

  - BrowserState: the list of open tabs and the selected tab id.
  - TabSessionState: one tab, split into its content (url, title, progress...) and
    its engine link (engine session id, crash flag, last error).
  - Action: a closed set of value types describing intended changes. Tab list,
    content and engine actions each have their own reducer.
  - StateDiff: the tab-level difference between two states, used by streaming
    consumers that only want what changed.
*/
package domain
