// Package browser wires the browser domain into a store: reducers for the tab
// list, tab content and engine link, a constructor for a browser store, and an
// ActionProducer that turns engine callbacks into actions.
package browser
