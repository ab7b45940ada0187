/*
Package ports defines the driven ports (interfaces) at the edge of tabstate.

The store and its middleware never talk to a browser engine, a network or another
process directly. They go through these interfaces, so tests and tools can plug in
in-memory implementations while a host application wires real ones.

# Key Interfaces

  - Engine / EngineSession: creates and drives one engine session per tab.
  - SessionObserver: receives engine callbacks and turns them into actions.
  - ActionDispatcher: anything that accepts browser actions, usually a store.
  - Broadcaster: sink for debug protocol lines (TCP clients, Redis channel).
  - DistributedLocker: lease guarding single-writer ownership of a window store.
*/
package ports
