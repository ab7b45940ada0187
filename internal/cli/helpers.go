// Package cli implements the tabstate commands on top of the public packages.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/internal/config"
	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/adapters/memory"
	"github.com/aretw0/tabstate/pkg/adapters/redis"
	"github.com/aretw0/tabstate/pkg/debug"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/aretw0/tabstate/pkg/store"
	backend "github.com/redis/go-redis/v9"
)

// SignalContext wraps a context that is cancelled on SIGINT or SIGTERM and
// remembers the signal.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext starts watching for SIGINT and SIGTERM.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Done():
		}
		sc.stop.Do(func() { signal.Stop(sc.sigCh) })
	}()
	return sc
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger builds the process logger for a configured level.
func NewLogger(level string) (*slog.Logger, error) {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(l), nil
}

// storeOptions maps the store section of the configuration onto store options.
func storeOptions(cfg config.StoreConfig) []store.Option {
	var opts []store.Option
	if cfg.RedeliverOnResume {
		opts = append(opts, store.WithResumePolicy(store.ResumeRedeliver))
	}
	if cfg.ConflictCheck {
		opts = append(opts, store.WithConflictCheck(nil))
	}
	return opts
}

// newPublisher connects to redis and starts a debug line publisher. Both are nil
// when redis is not configured.
func newPublisher(cfg config.RedisConfig, logger *slog.Logger) (*backend.Client, *redis.Publisher) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client := newRedisClient(cfg)
	pub := redis.NewPublisher(client, cfg.Channel, redis.WithPublisherLogger(logger))
	logger.Info("publishing debug lines to redis", "addr", cfg.Addr, "channel", pub.Channel())
	return client, pub
}

func newRedisClient(cfg config.RedisConfig) *backend.Client {
	return redis.NewClient(redis.Config{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// browserOptions are the options of a standalone window: the in-memory engine,
// the store settings and the debug server when enabled.
func browserOptions(cfg config.Config, logger *slog.Logger) []tabstate.Option {
	opts := []tabstate.Option{
		tabstate.WithLogger(logger),
		tabstate.WithEngine(memory.NewEngine(), middleware.WithEngineTimeout(cfg.Engine.Timeout)),
		tabstate.WithStoreOptions(storeOptions(cfg.Store)...),
	}
	if cfg.Debug.Enabled {
		opts = append(opts, tabstate.WithDebugServer(cfg.Debug.Addr, debug.WithClientBuffer(cfg.Debug.ClientBuffer)))
	}
	return opts
}

// closePublisher drains pub and closes client, logging failures.
func closePublisher(ctx context.Context, client *backend.Client, pub *redis.Publisher, logger *slog.Logger) {
	if pub != nil {
		if err := pub.Close(ctx); err != nil {
			logger.Warn("redis publisher did not drain", "err", err)
		}
		if dropped := pub.Dropped(); dropped > 0 {
			logger.Warn("redis publisher dropped lines", "dropped", dropped)
		}
	}
	if client != nil {
		_ = client.Close()
	}
}

// printSystemMessage prints a one-line note after command output.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
