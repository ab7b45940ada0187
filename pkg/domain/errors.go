package domain

import "errors"

// ErrUnknownAction is returned when an action kind has no registered decoder.
var ErrUnknownAction = errors.New("unknown action")

// ErrTabNotFound is returned when a tab id does not match any open tab.
var ErrTabNotFound = errors.New("tab not found")

// ErrWindowLocked is returned when another process owns the store of a window.
var ErrWindowLocked = errors.New("window is locked by another owner")

// ErrSessionClosed is returned by engine sessions used after Close.
var ErrSessionClosed = errors.New("engine session closed")
