package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tabstate/pkg/adapters/memory"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/aretw0/tabstate/pkg/ports"
	"github.com/aretw0/tabstate/pkg/session"
	"github.com/aretw0/tabstate/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestManager_WindowsAreIndependent(t *testing.T) {
	ctx := ctxT(t)
	m := session.NewManager()
	defer m.Close(ctx)

	a, err := m.Open(ctx, "a")
	require.NoError(t, err)
	b, err := m.Open(ctx, "b")
	require.NoError(t, err)
	require.NotSame(t, a.Store(), b.Store())

	a.Store().Dispatch(domain.NewAddTab("https://a.test/", true))
	require.NoError(t, a.Store().Flush(ctx))
	require.NoError(t, b.Store().Flush(ctx))

	assert.Len(t, a.Store().State().Tabs, 1)
	assert.Empty(t, b.Store().State().Tabs)
	assert.Equal(t, []string{"a", "b"}, m.List())
}

func TestManager_RefCounting(t *testing.T) {
	ctx := ctxT(t)
	m := session.NewManager()

	first, err := m.Open(ctx, "w")
	require.NoError(t, err)
	second, err := m.Open(ctx, "w")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, m.Release(ctx, "w"))
	got, ok := m.Get("w")
	require.True(t, ok, "still referenced")
	assert.Same(t, first, got)

	require.NoError(t, m.Release(ctx, "w"))
	_, ok = m.Get("w")
	assert.False(t, ok)
	assert.Empty(t, m.List())

	select {
	case <-first.Store().Done():
	default:
		t.Fatal("store should be closed after the last release")
	}

	assert.ErrorIs(t, m.Release(ctx, "w"), session.ErrWindowNotOpen)
}

func TestManager_ConcurrentOpenSharesWindow(t *testing.T) {
	ctx := ctxT(t)
	m := session.NewManager()
	defer m.Close(ctx)

	const n = 20
	windows := make([]*session.Window, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := m.Open(ctx, "shared")
			assert.NoError(t, err)
			windows[i] = w
		}(i)
	}
	wg.Wait()

	for _, w := range windows {
		assert.Same(t, windows[0], w)
	}
	for i := 0; i < n-1; i++ {
		require.NoError(t, m.Release(ctx, "shared"))
	}
	assert.Equal(t, []string{"shared"}, m.List())
	require.NoError(t, m.Release(ctx, "shared"))
	assert.Empty(t, m.List())
}

func TestManager_LockerExcludesSecondOwner(t *testing.T) {
	ctx := ctxT(t)
	locker := memory.NewLocker()
	one := session.NewManager(session.WithLocker(locker))
	two := session.NewManager(session.WithLocker(locker), session.WithLockWait(50*time.Millisecond))

	_, err := one.Open(ctx, "w")
	require.NoError(t, err)

	_, err = two.Open(ctx, "w")
	assert.ErrorIs(t, err, domain.ErrWindowLocked)
	assert.Empty(t, two.List())

	require.NoError(t, one.Release(ctx, "w"))

	_, err = two.Open(ctx, "w")
	require.NoError(t, err)
	require.NoError(t, two.Close(ctx))
}

func TestManager_WithEngine(t *testing.T) {
	ctx := ctxT(t)
	engine := memory.NewEngine()
	m := session.NewManager(session.WithEngine(engine, middleware.WithEngineTimeout(time.Second)))

	w, err := m.Open(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, w.Engine())

	w.Store().Dispatch(domain.NewAddTab("https://a.test/", true, domain.WithTabID("t1")))
	require.Eventually(t, func() bool {
		tab, ok := w.Store().State().FindTab("t1")
		return ok && tab.Engine.SessionID != "" && tab.Content.Title != ""
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, w.Engine().Sessions())

	require.NoError(t, m.Release(ctx, "w"))
	assert.Equal(t, 0, w.Engine().Sessions())
}

func TestManager_WithMiddleware(t *testing.T) {
	ctx := ctxT(t)
	var mu sync.Mutex
	seen := map[string]int{}
	m := session.NewManager(session.WithMiddleware(func(id string) []browser.Middleware {
		return []browser.Middleware{
			func(_ store.MiddlewareStore[domain.BrowserState, domain.Action], next store.Next[domain.Action], action domain.Action) {
				mu.Lock()
				seen[id]++
				mu.Unlock()
				next(action)
			},
		}
	}))
	defer m.Close(ctx)

	w, err := m.Open(ctx, "w")
	require.NoError(t, err)
	w.Store().Dispatch(domain.RemoveAllTabs{})
	require.NoError(t, w.Store().Flush(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"w": 1}, seen)
}

func TestManager_Close(t *testing.T) {
	ctx := ctxT(t)
	m := session.NewManager()

	w, err := m.Open(ctx, "w")
	require.NoError(t, err)
	_, err = m.Open(ctx, "w")
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx))
	<-w.Store().Done()

	_, err = m.Open(ctx, "x")
	assert.ErrorIs(t, err, session.ErrManagerClosed)

	_, err = m.Open(ctx, "")
	assert.Error(t, err)
}

// gatedLocker grants every lease only once gate is closed.
type gatedLocker struct {
	entered  chan struct{}
	gate     chan struct{}
	released chan string
}

func newGatedLocker() *gatedLocker {
	return &gatedLocker{
		entered:  make(chan struct{}, 1),
		gate:     make(chan struct{}),
		released: make(chan string, 1),
	}
}

func (l *gatedLocker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	l.entered <- struct{}{}
	select {
	case <-l.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func(context.Context) error {
		l.released <- key
		return nil
	}, nil
}

func TestManager_CloseDuringOpen(t *testing.T) {
	ctx := ctxT(t)
	locker := newGatedLocker()
	m := session.NewManager(session.WithLocker(locker), session.WithLockWait(5*time.Second))

	type result struct {
		w   *session.Window
		err error
	}
	opened := make(chan result, 1)
	go func() {
		w, err := m.Open(ctx, "w1")
		opened <- result{w, err}
	}()

	<-locker.entered
	require.NoError(t, m.Close(ctx))
	close(locker.gate)

	select {
	case r := <-opened:
		assert.Nil(t, r.w)
		assert.ErrorIs(t, r.err, session.ErrManagerClosed)
	case <-ctx.Done():
		t.Fatal("Open did not return")
	}

	select {
	case key := <-locker.released:
		assert.Equal(t, "w1", key, "the lease of the abandoned window is released")
	case <-ctx.Done():
		t.Fatal("lease was never released")
	}
	assert.Empty(t, m.List())
	_, ok := m.Get("w1")
	assert.False(t, ok)
}
