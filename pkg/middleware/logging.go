package middleware

import (
	"log/slog"
	"time"

	"github.com/aretw0/tabstate/pkg/store"
)

// Logging logs every dispatch at debug level with its duration and whether it
// produced a commit.
func Logging[S, A any](logger *slog.Logger) store.Middleware[S, A] {
	return func(s store.MiddlewareStore[S, A], next store.Next[A], action A) {
		start := time.Now()
		before := s.Revision()
		next(action)
		after := s.Revision()
		logger.Debug("dispatch",
			"action", store.ActionKind(action),
			"duration", time.Since(start),
			"changed", after != before,
			"revision", after,
		)
	}
}
