package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/internal/config"
	tshttp "github.com/aretw0/tabstate/pkg/adapters/http"
	"github.com/aretw0/tabstate/pkg/adapters/memory"
	"github.com/aretw0/tabstate/pkg/adapters/redis"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/debug"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/aretw0/tabstate/pkg/ports"
	"github.com/aretw0/tabstate/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds the graceful shutdown of serve.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	Config  config.Config
	Logger  *slog.Logger
	Version string
	// Ready is called with the HTTP address once the listener is bound.
	Ready func(addr net.Addr)
}

// Serve runs the introspection API over a registry of windows until ctx is done.
// Every window streams its dispatch log to the debug server and to redis when
// configured; with redis, window ownership is leased across processes.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, logger := opts.Config, opts.Logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	var sinks debug.Fanout
	var debugSrv *debug.Server
	if cfg.Debug.Enabled {
		debugSrv = debug.NewServer(cfg.Debug.Addr,
			debug.WithServerLogger(logger),
			debug.WithClientBuffer(cfg.Debug.ClientBuffer),
		)
		if err := debugSrv.Start(ctx); err != nil {
			return fmt.Errorf("debug server: %w", err)
		}
		logger.Info("debug server listening", "addr", debugSrv.Addr().String())
		sinks = append(sinks, debugSrv)
	}

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithEngine(memory.NewEngine(), middleware.WithEngineTimeout(cfg.Engine.Timeout), middleware.WithEngineLogger(logger)),
		session.WithStoreOptions(storeOptions(cfg.Store)...),
	}

	client, pub := newPublisher(cfg.Redis, logger)
	if pub != nil {
		sinks = append(sinks, pub)
		managerOpts = append(managerOpts, session.WithLocker(redis.NewLocker(client, cfg.Redis.LockPrefix)))
	}

	var sink ports.Broadcaster
	if len(sinks) > 0 {
		sink = sinks
	}
	managerOpts = append(managerOpts, session.WithMiddleware(func(windowID string) []browser.Middleware {
		return tabstate.Stack(logger.With("window", windowID), metrics, sink)
	}))
	manager := session.NewManager(managerOpts...)

	handler := tshttp.NewManagerHandler(manager,
		tshttp.WithLogger(logger),
		tshttp.WithVersion(opts.Version),
		tshttp.WithGatherer(reg),
	)

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		shutdown(manager, client, pub, debugSrv, logger)
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}
	logger.Info("http server listening", "addr", ln.Addr().String())
	if opts.Ready != nil {
		opts.Ready(ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with the server context.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			_ = srv.Close()
		}
		return nil
	})

	err = g.Wait()
	shutdown(manager, client, pub, debugSrv, logger)
	return err
}

// shutdown releases every window, then the sinks they write to.
func shutdown(manager *session.Manager, client *backend.Client, pub *redis.Publisher, debugSrv *debug.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := manager.Close(ctx); err != nil {
		logger.Warn("windows did not close cleanly", "err", err)
	}
	closePublisher(ctx, client, pub, logger)
	if debugSrv != nil {
		_ = debugSrv.Close()
	}
}
