package debug_test

import (
	"sync"
	"testing"

	"github.com/aretw0/tabstate/internal/testutils"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/debug"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Broadcast(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newStore(t *testing.T, mw ...browser.Middleware) *browser.Store {
	return testutils.NewBrowserStore(t, mw)
}

func TestMiddleware_StartAndEndPerDispatch(t *testing.T) {
	rec := &recorder{}
	s := newStore(t, debug.Middleware[domain.BrowserState, domain.Action](rec))

	s.Dispatch(domain.NewAddTab("https://a.test/", true, domain.WithTabID("a")))
	s.Dispatch(domain.SelectTab{TabID: "a"})
	testutils.Flush(t, s)

	lines := rec.snapshot()
	require.Len(t, lines, 4)

	var parsed []debug.Line
	for _, l := range lines {
		p, err := debug.ParseLine(l)
		require.NoError(t, err)
		parsed = append(parsed, p)
	}

	assert.Equal(t, debug.PhaseStart, parsed[0].Phase)
	assert.Equal(t, domain.KindAddTab, parsed[0].Kind)
	assert.Equal(t, debug.PhaseEnd, parsed[1].Phase)
	assert.Equal(t, parsed[0].ID, parsed[1].ID)

	assert.Equal(t, domain.KindSelectTab, parsed[2].Kind)
	assert.Equal(t, parsed[2].ID, parsed[3].ID)
	assert.NotEqual(t, parsed[0].ID, parsed[2].ID, "every dispatch gets its own id")
}

func TestMiddleware_DroppedActionStillEnds(t *testing.T) {
	rec := &recorder{}
	s := newStore(t,
		debug.Middleware[domain.BrowserState, domain.Action](rec),
		middleware.DropKinds[domain.BrowserState, domain.Action]([]string{domain.KindAddTab}),
	)

	s.Dispatch(domain.NewAddTab("https://a.test/", true))
	testutils.Flush(t, s)

	assert.Empty(t, s.State().Tabs)
	lines := rec.snapshot()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "START - add_tab")
	assert.Contains(t, lines[1], "END [")
}

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := debug.Fanout{a, debug.Discard, b}

	f.Broadcast("one")
	f.Broadcast("two")

	assert.Equal(t, []string{"one", "two"}, a.snapshot())
	assert.Equal(t, []string{"one", "two"}, b.snapshot())
}
