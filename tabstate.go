package tabstate

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/debug"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/aretw0/tabstate/pkg/ports"
	"github.com/aretw0/tabstate/pkg/store"
)

// Browser is one browser window: a store over domain.BrowserState wired with the
// standard middleware and, optionally, an engine and a debug server.
type Browser struct {
	store  *browser.Store
	engine *middleware.Engine
	debug  *debug.Server
	logger *slog.Logger
}

type options struct {
	logger       *slog.Logger
	initial      domain.BrowserState
	engine       ports.Engine
	engineOpts   []middleware.EngineOption
	metrics      *middleware.Metrics
	debugEnabled bool
	debugAddr    string
	debugOpts    []debug.ServerOption
	sinks        []ports.Broadcaster
	middleware   []browser.Middleware
	storeOpts    []store.Option
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger of the store and every middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInitialState starts the store from state instead of an empty window.
func WithInitialState(state domain.BrowserState) Option {
	return func(o *options) { o.initial = state }
}

// WithEngine drives engine sessions for the tabs of the window.
func WithEngine(engine ports.Engine, opts ...middleware.EngineOption) Option {
	return func(o *options) {
		o.engine = engine
		o.engineOpts = opts
	}
}

// WithMetrics records dispatches into m.
func WithMetrics(m *middleware.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDebugServer starts a debug server on addr and streams the dispatch log to
// its clients. An empty addr means debug.DefaultAddr.
func WithDebugServer(addr string, opts ...debug.ServerOption) Option {
	return func(o *options) {
		o.debugEnabled = true
		o.debugAddr = addr
		o.debugOpts = opts
	}
}

// WithBroadcaster adds a sink for the dispatch log.
func WithBroadcaster(b ports.Broadcaster) Option {
	return func(o *options) { o.sinks = append(o.sinks, b) }
}

// WithMiddleware appends middleware after the standard stack and before the
// engine.
func WithMiddleware(mw ...browser.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mw...) }
}

// WithStoreOptions passes opts to the store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// Stack returns the standard middleware: the dispatch log when sink is not nil,
// debug logging, and metrics when m is not nil.
func Stack(logger *slog.Logger, m *middleware.Metrics, sink ports.Broadcaster) []browser.Middleware {
	var mw []browser.Middleware
	if sink != nil {
		mw = append(mw, debug.Middleware[domain.BrowserState, domain.Action](sink))
	}
	if m != nil {
		mw = append(mw, middleware.Instrument[domain.BrowserState, domain.Action](m))
	}
	if logger != nil {
		mw = append(mw, middleware.Logging[domain.BrowserState, domain.Action](logger))
	}
	return mw
}

// New creates a browser window. The debug server, when enabled, stops when ctx is
// cancelled or the window is closed.
func New(ctx context.Context, opts ...Option) (*Browser, error) {
	o := &options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	b := &Browser{logger: o.logger}

	sinks := o.sinks
	if o.debugEnabled {
		srv := debug.NewServer(o.debugAddr, append([]debug.ServerOption{debug.WithServerLogger(o.logger)}, o.debugOpts...)...)
		if err := srv.Start(ctx); err != nil {
			return nil, err
		}
		b.debug = srv
		sinks = append(sinks, srv)
		o.logger.Info("debug server listening", "addr", srv.Addr().String())
	}

	var sink ports.Broadcaster
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = debug.Fanout(sinks)
	}

	mw := append(Stack(o.logger, o.metrics, sink), o.middleware...)
	if o.engine != nil {
		b.engine = middleware.NewEngine(o.engine, append([]middleware.EngineOption{middleware.WithEngineLogger(o.logger)}, o.engineOpts...)...)
		mw = append(mw, b.engine.Middleware())
	}

	storeOpts := append([]store.Option{store.WithLogger(o.logger)}, o.storeOpts...)
	b.store = browser.NewStore(o.initial, mw, storeOpts...)
	return b, nil
}

// Store returns the underlying store.
func (b *Browser) Store() *browser.Store { return b.store }

// Engine returns the engine middleware, or nil without WithEngine.
func (b *Browser) Engine() *middleware.Engine { return b.engine }

// DebugAddr returns the debug server address, or nil without WithDebugServer.
func (b *Browser) DebugAddr() net.Addr {
	if b.debug == nil {
		return nil
	}
	return b.debug.Addr()
}

// Dispatch enqueues action.
func (b *Browser) Dispatch(action domain.Action) { b.store.Dispatch(action) }

// State returns the current state.
func (b *Browser) State() domain.BrowserState { return b.store.State() }

// Revision returns the revision of the current state.
func (b *Browser) Revision() uint64 { return b.store.Revision() }

// Flush waits until every action dispatched so far has been processed.
func (b *Browser) Flush(ctx context.Context) error { return b.store.Flush(ctx) }

// Wait flushes the store and joins engine work until both are idle.
func (b *Browser) Wait(ctx context.Context) error {
	if err := b.store.Flush(ctx); err != nil {
		return err
	}
	if b.engine == nil {
		return nil
	}
	for {
		before := b.store.Revision()
		if err := b.engine.Wait(ctx); err != nil {
			return err
		}
		if err := b.store.Flush(ctx); err != nil {
			return err
		}
		if b.store.Revision() == before {
			return nil
		}
	}
}

// Close stops the engine, then the store, then the debug server.
func (b *Browser) Close(ctx context.Context) error {
	var errs []error
	if b.engine != nil {
		errs = append(errs, b.engine.Close(ctx))
	}
	errs = append(errs, b.store.Close(ctx))
	if b.debug != nil {
		errs = append(errs, b.debug.Close())
	}
	return errors.Join(errs...)
}
