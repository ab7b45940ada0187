package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/ports"
	"github.com/aretw0/tabstate/pkg/store"
)

// DefaultEngineTimeout bounds a single engine call.
const DefaultEngineTimeout = 10 * time.Second

type browserStore = store.MiddlewareStore[domain.BrowserState, domain.Action]

// Engine links tabs to engine sessions. It creates a session when a tab is added
// or restored after a crash, forwards LoadURL, GoBack, GoForward and Reload to the
// tab's session, and closes sessions when tabs are removed or crash.
//
// Engine calls never run on the store's writer goroutine. Each tab has a lane that
// runs its jobs one at a time, in dispatch order. Failures are reported as
// domain.EngineError actions.
type Engine struct {
	engine  ports.Engine
	logger  *slog.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]ports.EngineSession
	lanes    map[string]*lane
	active   int
	idle     chan struct{}
	closed   bool
}

type lane struct {
	jobs    []func(ctx context.Context)
	running bool
}

// EngineOption configures an Engine middleware.
type EngineOption func(*Engine)

func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithEngineTimeout bounds every engine call. The default is DefaultEngineTimeout.
func WithEngineTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine creates the engine middleware backed by engine.
func NewEngine(engine ports.Engine, opts ...EngineOption) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		engine:   engine,
		logger:   logging.NewNop(),
		timeout:  DefaultEngineTimeout,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]ports.EngineSession),
		lanes:    make(map[string]*lane),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Middleware returns the store middleware.
func (e *Engine) Middleware() browser.Middleware {
	return e.intercept
}

func (e *Engine) intercept(s browserStore, next store.Next[domain.Action], action domain.Action) {
	next(action)

	switch a := action.(type) {
	case domain.AddTab:
		e.link(s, a.Tab.ID)
	case domain.RestoreCrashed:
		e.link(s, a.TabID)
	case domain.LoadURL:
		e.command(s, a.TabID, a.Kind(), func(ctx context.Context, session ports.EngineSession) error {
			return session.LoadURL(ctx, a.URL)
		})
	case domain.GoBack:
		e.command(s, a.TabID, a.Kind(), func(ctx context.Context, session ports.EngineSession) error {
			return session.GoBack(ctx)
		})
	case domain.GoForward:
		e.command(s, a.TabID, a.Kind(), func(ctx context.Context, session ports.EngineSession) error {
			return session.GoForward(ctx)
		})
	case domain.Reload:
		e.command(s, a.TabID, a.Kind(), func(ctx context.Context, session ports.EngineSession) error {
			return session.Reload(ctx)
		})
	case domain.RemoveTab:
		e.release(a.TabID)
	case domain.Crash:
		e.release(a.TabID)
	case domain.RemoveAllTabs:
		for _, id := range e.known() {
			e.release(id)
		}
	}
}

// link creates the session of a tab and loads its URL unless the tab asks to skip
// loading.
func (e *Engine) link(s browserStore, tabID string) {
	e.enqueue(tabID, func(ctx context.Context) {
		session, created, err := e.ensure(ctx, s, tabID)
		if err != nil {
			e.fail(s, tabID, "create_session", err)
			return
		}
		if !created {
			return
		}
		tab, ok := s.State().FindTab(tabID)
		if !ok || tab.Engine.SkipLoading || tab.Content.URL == "" {
			return
		}
		if err := session.LoadURL(ctx, tab.Content.URL); err != nil {
			e.fail(s, tabID, domain.KindLoadURL, err)
		}
	})
}

func (e *Engine) command(s browserStore, tabID, kind string, call func(context.Context, ports.EngineSession) error) {
	e.enqueue(tabID, func(ctx context.Context) {
		session, _, err := e.ensure(ctx, s, tabID)
		if err != nil {
			e.fail(s, tabID, kind, err)
			return
		}
		if err := call(ctx, session); err != nil {
			e.fail(s, tabID, kind, err)
		}
	})
}

// release closes and forgets the session of a tab.
func (e *Engine) release(tabID string) {
	e.enqueue(tabID, func(context.Context) {
		e.mu.Lock()
		session := e.sessions[tabID]
		delete(e.sessions, tabID)
		e.mu.Unlock()
		if session == nil {
			return
		}
		if err := session.Close(); err != nil {
			e.logger.Warn("engine session close failed", "tab_id", tabID, "session_id", session.ID(), "err", err)
		}
	})
}

// ensure returns the session of a tab, creating it if needed. It runs on the tab's
// lane, so no other job for the tab runs concurrently.
func (e *Engine) ensure(ctx context.Context, s browserStore, tabID string) (ports.EngineSession, bool, error) {
	e.mu.Lock()
	session := e.sessions[tabID]
	e.mu.Unlock()
	if session != nil {
		return session, false, nil
	}

	tab, ok := s.State().FindTab(tabID)
	if !ok {
		return nil, false, fmt.Errorf("tab %s: %w", tabID, domain.ErrTabNotFound)
	}
	if tab.Engine.Crashed {
		return nil, false, fmt.Errorf("tab %s crashed: %w", tabID, domain.ErrSessionClosed)
	}

	session, err := e.engine.CreateSession(ctx, ports.SessionOptions{TabID: tabID, Private: tab.Content.Private})
	if err != nil {
		return nil, false, err
	}
	session.Register(browser.NewActionProducer(tabID, s))

	e.mu.Lock()
	e.sessions[tabID] = session
	e.mu.Unlock()

	e.logger.Debug("engine session linked", "tab_id", tabID, "session_id", session.ID())
	s.Dispatch(domain.LinkEngineSession{TabID: tabID, SessionID: session.ID(), SkipLoading: tab.Engine.SkipLoading})
	return session, true, nil
}

func (e *Engine) fail(s browserStore, tabID, op string, err error) {
	if e.ctx.Err() != nil {
		return
	}
	if errors.Is(err, domain.ErrTabNotFound) {
		e.logger.Debug("engine call for missing tab ignored", "tab_id", tabID, "op", op)
		return
	}
	e.logger.Warn("engine call failed", "tab_id", tabID, "op", op, "err", err)
	s.Dispatch(domain.EngineError{TabID: tabID, Message: fmt.Sprintf("%s: %v", op, err)})
}

// known returns the tabs that have a session or pending work.
func (e *Engine) known() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.sessions)+len(e.lanes))
	seen := make(map[string]struct{}, cap(ids))
	for id := range e.sessions {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range e.lanes {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Engine) enqueue(tabID string, job func(ctx context.Context)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	l := e.lanes[tabID]
	if l == nil {
		l = &lane{}
		e.lanes[tabID] = l
	}
	l.jobs = append(l.jobs, job)
	if l.running {
		return
	}
	l.running = true
	if e.active == 0 {
		e.idle = make(chan struct{})
	}
	e.active++
	go e.drain(tabID, l)
}

func (e *Engine) drain(tabID string, l *lane) {
	for {
		e.mu.Lock()
		if len(l.jobs) == 0 {
			l.running = false
			if e.lanes[tabID] == l {
				delete(e.lanes, tabID)
			}
			e.active--
			if e.active == 0 {
				close(e.idle)
			}
			e.mu.Unlock()
			return
		}
		job := l.jobs[0]
		l.jobs = l.jobs[1:]
		e.mu.Unlock()

		ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
		job(ctx)
		cancel()
	}
}

// Wait blocks until no engine work is pending or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.active == 0 {
		e.mu.Unlock()
		return nil
	}
	idle := e.idle
	e.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sessions returns the number of live engine sessions.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Close stops accepting work, cancels in-flight engine calls, waits for lanes to
// drain and closes every remaining session.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()

	err := e.Wait(ctx)

	e.mu.Lock()
	sessions := e.sessions
	e.sessions = make(map[string]ports.EngineSession)
	e.mu.Unlock()
	for id, session := range sessions {
		if cerr := session.Close(); cerr != nil {
			e.logger.Warn("engine session close failed", "tab_id", id, "err", cerr)
		}
	}
	return err
}
