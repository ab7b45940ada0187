package memory

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/ports"
)

// Engine implements ports.Engine in memory. Sessions keep a navigation history and
// report a complete page load synchronously on every navigation.
// Safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	failures  map[string]error
	createErr error
	nextID    int
}

// NewEngine creates a new in-memory engine.
func NewEngine() *Engine {
	return &Engine{
		sessions: make(map[string]*Session),
		failures: make(map[string]error),
	}
}

// FailOn makes every future load of rawURL fail with err.
func (e *Engine) FailOn(rawURL string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[rawURL] = err
}

// FailCreate makes CreateSession fail with err until called again with nil.
func (e *Engine) FailCreate(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createErr = err
}

// CreateSession starts a session with an empty history.
func (e *Engine) CreateSession(ctx context.Context, opts ports.SessionOptions) (ports.EngineSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.createErr != nil {
		return nil, e.createErr
	}
	e.nextID++
	s := &Session{
		id:      fmt.Sprintf("mem-%d", e.nextID),
		tabID:   opts.TabID,
		private: opts.Private,
		engine:  e,
		index:   -1,
	}
	e.sessions[s.id] = s
	return s, nil
}

// Session returns the live session with id.
func (e *Engine) Session(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	return s, ok
}

// Sessions returns the number of live sessions.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *Engine) failure(rawURL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures[rawURL]
}

func (e *Engine) forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, id)
}

// Session is an in-memory engine session.
type Session struct {
	id      string
	tabID   string
	private bool
	engine  *Engine

	mu       sync.Mutex
	observer ports.SessionObserver
	history  []string
	index    int
	closed   bool
}

var _ ports.EngineSession = (*Session)(nil)

func (s *Session) ID() string { return s.id }

// TabID returns the tab the session was created for.
func (s *Session) TabID() string { return s.tabID }

func (s *Session) Register(observer ports.SessionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

func (s *Session) LoadURL(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.engine.failure(rawURL); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.history = append(s.history[:s.index+1], rawURL)
	s.index = len(s.history) - 1
	s.mu.Unlock()

	s.load()
	return nil
}

func (s *Session) GoBack(ctx context.Context) error {
	return s.move(ctx, -1)
}

func (s *Session) GoForward(ctx context.Context) error {
	return s.move(ctx, 1)
}

func (s *Session) Reload(ctx context.Context) error {
	return s.move(ctx, 0)
}

// move shifts the history cursor by delta. Moving past either end is a no-op.
func (s *Session) move(ctx context.Context, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	target := s.index + delta
	if s.index < 0 || target < 0 || target >= len(s.history) {
		s.mu.Unlock()
		return nil
	}
	s.index = target
	s.mu.Unlock()

	s.load()
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.observer = nil
	s.mu.Unlock()
	s.engine.forget(s.id)
	return nil
}

// Crash simulates an engine crash of the session.
func (s *Session) Crash() {
	if obs := s.currentObserver(); obs != nil {
		obs.OnCrash()
	}
}

// LongPress simulates a long press on the page.
func (s *Session) LongPress(hit domain.HitResult) {
	if obs := s.currentObserver(); obs != nil {
		obs.OnLongPress(hit)
	}
}

// History returns the visited URLs and the current position.
func (s *Session) History() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...), s.index
}

func (s *Session) currentObserver() ports.SessionObserver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer
}

// load reports a full page load of the current history entry.
func (s *Session) load() {
	s.mu.Lock()
	obs := s.observer
	current := s.history[s.index]
	canGoBack := s.index > 0
	canGoForward := s.index < len(s.history)-1
	s.mu.Unlock()
	if obs == nil {
		return
	}

	obs.OnLoadingStateChange(true)
	obs.OnProgress(0)
	obs.OnLocationChange(current)
	obs.OnSecurityChange(securityInfo(current))
	obs.OnProgress(100)
	obs.OnTitleChange(title(current))
	obs.OnNavigationStateChange(canGoBack, canGoForward)
	obs.OnLoadingStateChange(false)
}

func securityInfo(rawURL string) domain.SecurityInfo {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.SecurityInfo{}
	}
	info := domain.SecurityInfo{Secure: u.Scheme == "https", Host: u.Hostname()}
	if info.Secure {
		info.Issuer = "In-Memory CA"
	}
	return info
}

func title(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	if path := strings.Trim(u.Path, "/"); path != "" {
		return u.Hostname() + " - " + path
	}
	return u.Hostname()
}
