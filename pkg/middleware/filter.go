package middleware

import (
	"log/slog"

	"github.com/aretw0/tabstate/pkg/store"
)

type dropConfig struct {
	logger  *slog.Logger
	metrics *Metrics
}

// DropOption configures Drop.
type DropOption func(*dropConfig)

// LogDropped logs each dropped action at debug level.
func LogDropped(logger *slog.Logger) DropOption {
	return func(c *dropConfig) { c.logger = logger }
}

// CountDropped records each dropped action in m.
func CountDropped(m *Metrics) DropOption {
	return func(c *dropConfig) { c.metrics = m }
}

// Drop stops actions for which match returns true. They never reach later
// middleware or the reducers, so they cannot change state or notify anyone.
func Drop[S, A any](match func(A) bool, opts ...DropOption) store.Middleware[S, A] {
	var cfg dropConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(s store.MiddlewareStore[S, A], next store.Next[A], action A) {
		if !match(action) {
			next(action)
			return
		}
		kind := store.ActionKind(action)
		if cfg.logger != nil {
			cfg.logger.Debug("action dropped", "action", kind)
		}
		if cfg.metrics != nil {
			cfg.metrics.dropped.WithLabelValues(kind).Inc()
		}
	}
}

// DropKinds drops actions whose kind is one of kinds.
func DropKinds[S, A any](kinds []string, opts ...DropOption) store.Middleware[S, A] {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return Drop[S, A](func(action A) bool {
		_, ok := set[store.ActionKind(action)]
		return ok
	}, opts...)
}

// Translate passes fn(action) down the chain instead of action.
func Translate[S, A any](fn func(A) A) store.Middleware[S, A] {
	return func(s store.MiddlewareStore[S, A], next store.Next[A], action A) {
		next(fn(action))
	}
}
