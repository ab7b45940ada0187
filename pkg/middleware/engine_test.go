package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/tabstate/pkg/adapters/memory"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store  *browser.Store
	engine *memory.Engine
	mw     *middleware.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine := memory.NewEngine()
	mw := middleware.NewEngine(engine, middleware.WithEngineTimeout(time.Second))
	s := browser.NewStore(domain.BrowserState{}, []browser.Middleware{mw.Middleware()})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = mw.Close(ctx)
		_ = s.Close(ctx)
	})
	return &harness{store: s, engine: engine, mw: mw}
}

// settle waits until the store and the engine lanes are both idle.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 10; i++ {
		require.NoError(t, h.store.Flush(ctx))
		require.NoError(t, h.mw.Wait(ctx))
	}
	require.NoError(t, h.store.Flush(ctx))
}

func (h *harness) tab(t *testing.T, id string) domain.TabSessionState {
	t.Helper()
	tab, ok := h.store.State().FindTab(id)
	require.True(t, ok, "tab %s not found", id)
	return tab
}

func TestEngine_AddTabLinksSessionAndLoads(t *testing.T) {
	h := newHarness(t)

	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://a.test/", domain.WithTabID("a")), Select: true})
	h.settle(t)

	tab := h.tab(t, "a")
	assert.NotEmpty(t, tab.Engine.SessionID)
	assert.Equal(t, "https://a.test/", tab.Content.URL)
	assert.Equal(t, "a.test", tab.Content.Title)
	assert.Equal(t, 100, tab.Content.Progress)
	assert.False(t, tab.Content.Loading)
	assert.True(t, tab.Content.SecurityInfo.Secure)
	assert.Equal(t, 1, h.mw.Sessions())

	session, ok := h.engine.Session(tab.Engine.SessionID)
	require.True(t, ok)
	history, _ := session.History()
	assert.Equal(t, []string{"https://a.test/"}, history)
}

func TestEngine_SkipLoading(t *testing.T) {
	h := newHarness(t)

	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://a.test/", domain.WithTabID("a"), domain.WithSkipLoading())})
	h.settle(t)

	tab := h.tab(t, "a")
	require.NotEmpty(t, tab.Engine.SessionID)
	assert.True(t, tab.Engine.SkipLoading)
	assert.Empty(t, tab.Content.Title, "nothing was loaded")

	session, _ := h.engine.Session(tab.Engine.SessionID)
	history, _ := session.History()
	assert.Empty(t, history)
}

func TestEngine_Navigation(t *testing.T) {
	h := newHarness(t)
	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://one.test/", domain.WithTabID("a"))})
	h.store.Dispatch(domain.LoadURL{TabID: "a", URL: "https://two.test/"})
	h.settle(t)

	tab := h.tab(t, "a")
	assert.Equal(t, "https://two.test/", tab.Content.URL)
	assert.True(t, tab.Content.CanGoBack)

	h.store.Dispatch(domain.GoBack{TabID: "a"})
	h.settle(t)
	tab = h.tab(t, "a")
	assert.Equal(t, "https://one.test/", tab.Content.URL)
	assert.True(t, tab.Content.CanGoForward)

	h.store.Dispatch(domain.GoForward{TabID: "a"})
	h.store.Dispatch(domain.Reload{TabID: "a"})
	h.settle(t)
	assert.Equal(t, "https://two.test/", h.tab(t, "a").Content.URL)
	assert.Equal(t, 1, h.engine.Sessions(), "commands reuse the tab's session")
}

func TestEngine_FailuresBecomeEngineErrors(t *testing.T) {
	h := newHarness(t)
	h.engine.FailOn("https://down.test/", errors.New("connection refused"))

	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://up.test/", domain.WithTabID("a"))})
	h.store.Dispatch(domain.LoadURL{TabID: "a", URL: "https://down.test/"})
	h.settle(t)

	tab := h.tab(t, "a")
	assert.Equal(t, "https://up.test/", tab.Content.URL)
	assert.Contains(t, tab.Engine.LastError, "connection refused")
	assert.Contains(t, tab.Engine.LastError, domain.KindLoadURL)
}

func TestEngine_CreateFailure(t *testing.T) {
	h := newHarness(t)
	h.engine.FailCreate(errors.New("engine unavailable"))

	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://a.test/", domain.WithTabID("a"))})
	h.settle(t)

	tab := h.tab(t, "a")
	assert.Empty(t, tab.Engine.SessionID)
	assert.Contains(t, tab.Engine.LastError, "engine unavailable")
}

func TestEngine_RemoveTabClosesSession(t *testing.T) {
	h := newHarness(t)
	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://a.test/", domain.WithTabID("a"))})
	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://b.test/", domain.WithTabID("b"))})
	h.settle(t)
	require.Equal(t, 2, h.engine.Sessions())

	h.store.Dispatch(domain.RemoveTab{TabID: "a"})
	h.settle(t)
	assert.Equal(t, 1, h.engine.Sessions())
	assert.Equal(t, 1, h.mw.Sessions())

	h.store.Dispatch(domain.RemoveAllTabs{})
	h.settle(t)
	assert.Equal(t, 0, h.engine.Sessions())
	assert.Empty(t, h.store.State().Tabs)
}

func TestEngine_RemoveBeforeSessionCreated(t *testing.T) {
	h := newHarness(t)
	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://a.test/", domain.WithTabID("a"))})
	h.store.Dispatch(domain.RemoveTab{TabID: "a"})
	h.settle(t)

	assert.Equal(t, 0, h.engine.Sessions())
	assert.Equal(t, 0, h.mw.Sessions())
}

func TestEngine_CrashAndRestore(t *testing.T) {
	h := newHarness(t)
	h.store.Dispatch(domain.AddTab{Tab: domain.NewTab("https://a.test/", domain.WithTabID("a"))})
	h.settle(t)
	first := h.tab(t, "a").Engine.SessionID
	session, ok := h.engine.Session(first)
	require.True(t, ok)

	session.Crash()
	h.settle(t)
	tab := h.tab(t, "a")
	assert.True(t, tab.Engine.Crashed)
	assert.Empty(t, tab.Engine.SessionID)
	assert.Equal(t, 0, h.engine.Sessions())

	h.store.Dispatch(domain.Reload{TabID: "a"})
	h.settle(t)
	assert.Contains(t, h.tab(t, "a").Engine.LastError, "crashed")
	assert.Equal(t, 0, h.engine.Sessions(), "crashed tabs need an explicit restore")

	h.store.Dispatch(domain.RestoreCrashed{TabID: "a"})
	h.settle(t)
	tab = h.tab(t, "a")
	assert.False(t, tab.Engine.Crashed)
	assert.NotEmpty(t, tab.Engine.SessionID)
	assert.NotEqual(t, first, tab.Engine.SessionID)
	assert.Empty(t, tab.Engine.LastError)
	assert.Equal(t, "https://a.test/", tab.Content.URL)
}

func TestEngine_CloseReleasesSessions(t *testing.T) {
	engine := memory.NewEngine()
	mw := middleware.NewEngine(engine)
	s := browser.NewStore(domain.BrowserState{}, []browser.Middleware{mw.Middleware()})
	defer s.Close(context.Background())

	s.Dispatch(domain.AddTab{Tab: domain.NewTab("https://a.test/", domain.WithTabID("a"))})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))

	require.NoError(t, mw.Close(ctx))
	assert.Equal(t, 0, engine.Sessions())
	assert.Equal(t, 0, mw.Sessions())

	// Work after Close is ignored.
	s.Dispatch(domain.AddTab{Tab: domain.NewTab("https://b.test/", domain.WithTabID("b"))})
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, mw.Wait(ctx))
	assert.Equal(t, 0, engine.Sessions())
}
