package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/aretw0/tabstate/pkg/ports"
	"github.com/aretw0/tabstate/pkg/store"
)

const (
	// DefaultLeaseTTL is how long a window lease lasts when its holder vanishes
	// without releasing it.
	DefaultLeaseTTL = time.Hour
	// DefaultLockWait is how long Open waits for a lease held elsewhere.
	DefaultLockWait = time.Second
)

var (
	// ErrManagerClosed is returned by Open after Close.
	ErrManagerClosed = errors.New("session manager closed")
	// ErrWindowNotOpen is returned by Release for an unknown window.
	ErrWindowNotOpen = errors.New("window not open")
)

// Window is one open window.
type Window struct {
	id     string
	store  *browser.Store
	engine *middleware.Engine
	unlock ports.UnlockFunc
}

func (w *Window) ID() string            { return w.id }
func (w *Window) Store() *browser.Store { return w.store }

// Engine returns the window's engine middleware, or nil when the manager has no
// engine.
func (w *Window) Engine() *middleware.Engine { return w.engine }

// close shuts the engine first so no engine callback dispatches into a closed store.
func (w *Window) close(ctx context.Context) error {
	var errs []error
	if w.engine != nil {
		errs = append(errs, w.engine.Close(ctx))
	}
	errs = append(errs, w.store.Close(ctx))
	if w.unlock != nil {
		if err := w.unlock(ctx); err != nil {
			errs = append(errs, fmt.Errorf("release lease: %w", err))
		}
	}
	return errors.Join(errs...)
}

// entry tracks the holders of a window. ready is closed once opening finished.
type entry struct {
	refs   int
	ready  chan struct{}
	window *Window
	err    error
}

// Manager owns the windows of a process.
type Manager struct {
	mu      sync.Mutex
	windows map[string]*entry
	closed  bool

	locker     ports.DistributedLocker
	leaseTTL   time.Duration
	lockWait   time.Duration
	logger     *slog.Logger
	engine     ports.Engine
	engineOpts []middleware.EngineOption
	middleware func(windowID string) []browser.Middleware
	storeOpts  []store.Option
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker leases every window id from locker.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

func WithLeaseTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.leaseTTL = ttl }
}

// WithLockWait bounds how long Open waits for a lease before failing with
// domain.ErrWindowLocked.
func WithLockWait(d time.Duration) Option {
	return func(m *Manager) { m.lockWait = d }
}

// WithLogger configures a logger for the Manager and its stores.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithEngine gives every window an engine middleware backed by engine.
func WithEngine(engine ports.Engine, opts ...middleware.EngineOption) Option {
	return func(m *Manager) {
		m.engine = engine
		m.engineOpts = opts
	}
}

// WithMiddleware installs the middleware returned by fn on each new window. They
// run before the engine middleware.
func WithMiddleware(fn func(windowID string) []browser.Middleware) Option {
	return func(m *Manager) { m.middleware = fn }
}

// WithStoreOptions passes opts to every window store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(m *Manager) { m.storeOpts = opts }
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		windows:  make(map[string]*entry),
		leaseTTL: DefaultLeaseTTL,
		lockWait: DefaultLockWait,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open returns the window with id, creating it if needed. Every successful Open
// must be paired with a Release.
func (m *Manager) Open(ctx context.Context, id string) (*Window, error) {
	if id == "" {
		return nil, errors.New("window id is required")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if e, ok := m.windows[id]; ok {
		e.refs++
		m.mu.Unlock()
		<-e.ready
		return e.window, e.err
	}
	e := &entry{refs: 1, ready: make(chan struct{})}
	m.windows[id] = e
	m.mu.Unlock()

	w, err := m.open(ctx, id)

	m.mu.Lock()
	// Close ran while the window was being opened and did not see it.
	abandoned := err == nil && m.closed
	if abandoned {
		err = ErrManagerClosed
	} else {
		e.window = w
	}
	e.err = err
	if err != nil && m.windows[id] == e {
		delete(m.windows, id)
	}
	m.mu.Unlock()
	close(e.ready)

	if abandoned {
		if cerr := w.close(ctx); cerr != nil {
			m.logger.Warn("window opened after close did not shut down cleanly", "window_id", id, "err", cerr)
		}
	}
	if err != nil {
		return nil, err
	}
	m.logger.Info("window opened", "window_id", id)
	return w, nil
}

func (m *Manager) open(ctx context.Context, id string) (*Window, error) {
	w := &Window{id: id}

	if m.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, m.lockWait)
		unlock, err := m.locker.Lock(lockCtx, id, m.leaseTTL)
		cancel()
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("window %s: %w", id, domain.ErrWindowLocked)
			}
			return nil, fmt.Errorf("window %s lease: %w", id, err)
		}
		w.unlock = unlock
	}

	logger := m.logger.With("window_id", id)
	var mw []browser.Middleware
	if m.middleware != nil {
		mw = append(mw, m.middleware(id)...)
	}
	if m.engine != nil {
		opts := append([]middleware.EngineOption{middleware.WithEngineLogger(logger)}, m.engineOpts...)
		w.engine = middleware.NewEngine(m.engine, opts...)
		mw = append(mw, w.engine.Middleware())
	}

	storeOpts := append([]store.Option{store.WithLogger(logger)}, m.storeOpts...)
	w.store = browser.NewStore(domain.BrowserState{}, mw, storeOpts...)
	return w, nil
}

// Release drops one reference to the window and closes it when none remain.
func (m *Manager) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.windows[id]
	if !ok || e.window == nil {
		m.mu.Unlock()
		return fmt.Errorf("window %s: %w", id, ErrWindowNotOpen)
	}
	e.refs--
	if e.refs > 0 {
		m.mu.Unlock()
		return nil
	}
	delete(m.windows, id)
	m.mu.Unlock()

	m.logger.Info("window closed", "window_id", id)
	return e.window.close(ctx)
}

// Get returns an open window without taking a reference.
func (m *Manager) Get(id string) (*Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.windows[id]
	if !ok || e.window == nil {
		return nil, false
	}
	return e.window, true
}

// List returns the ids of the open windows, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.windows))
	for id, e := range m.windows {
		if e.window != nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Close closes every open window regardless of references. Open fails afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	var windows []*Window
	for id, e := range m.windows {
		if e.window != nil {
			windows = append(windows, e.window)
			delete(m.windows, id)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, w := range windows {
		errs = append(errs, w.close(ctx))
	}
	return errors.Join(errs...)
}
