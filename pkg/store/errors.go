package store

import (
	"errors"
	"fmt"
)

// ErrStoreClosed is returned by blocking operations on a store that has been closed.
var ErrStoreClosed = errors.New("store is closed")

// DispatchError describes a panic raised by a reducer, middleware or observer while
// the writer goroutine was processing a task. The committed state is left as it was
// before the failing reduction.
type DispatchError struct {
	// Action is the action being processed, or nil for internal tasks.
	Action any
	// Value is the value passed to panic.
	Value any
	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

func (e *DispatchError) Error() string {
	if e.Action == nil {
		return fmt.Sprintf("store task panicked: %v", e.Value)
	}
	return fmt.Sprintf("dispatch of %s panicked: %v", ActionKind(e.Action), e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *DispatchError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrorHandler is the top-level boundary for programmer errors raised inside the
// dispatch pipeline.
type ErrorHandler func(err *DispatchError)

// Repanic is the default ErrorHandler. It re-raises the failure on the writer
// goroutine so that logic errors are never swallowed.
func Repanic(err *DispatchError) {
	panic(err)
}
