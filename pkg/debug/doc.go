// Package debug streams dispatch traces to external tools.
//
// Every action handled by a store produces two lines:
//
//	<uuid> - START - <action-kind>
//	<uuid> - END [<elapsed-ns> ns]
//
// Middleware emits the lines to a ports.Broadcaster. Server is a Broadcaster that
// forwards them to every client connected to a TCP listener, by default on port
// 6701. Tail connects to such a server and copies the stream to a writer.
package debug
