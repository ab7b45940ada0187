package store

import (
	"fmt"
	"log/slog"
)

// ResumePolicy decides what a subscription receives when it is resumed.
type ResumePolicy int

const (
	// ResumeSkip delivers only states committed after the resume.
	ResumeSkip ResumePolicy = iota
	// ResumeRedeliver additionally delivers the current state once, scheduled on the
	// writer goroutine so it is ordered with commits.
	ResumeRedeliver
)

func (p ResumePolicy) String() string {
	switch p {
	case ResumeSkip:
		return "skip"
	case ResumeRedeliver:
		return "redeliver"
	default:
		return fmt.Sprintf("ResumePolicy(%d)", int(p))
	}
}

type settings struct {
	logger   *slog.Logger
	onError  ErrorHandler
	resume   ResumePolicy
	conflict func(Conflict)
	checking bool
}

// Option configures a Store.
type Option func(*settings)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithErrorHandler installs the top-level boundary for panics raised by reducers,
// middleware or observers. The default is Repanic.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(s *settings) {
		s.onError = handler
	}
}

// WithResumePolicy sets the default resume policy for new subscriptions.
func WithResumePolicy(policy ResumePolicy) Option {
	return func(s *settings) {
		s.resume = policy
	}
}

// WithConflictCheck evaluates every reducer individually and calls handler when more
// than one of them changed the state for the same action. A nil handler logs a
// warning instead. Intended for debug builds and tests.
func WithConflictCheck(handler func(Conflict)) Option {
	return func(s *settings) {
		s.checking = true
		s.conflict = handler
	}
}
