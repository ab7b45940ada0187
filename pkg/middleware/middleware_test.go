package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	state  = domain.BrowserState
	action = domain.Action
)

func run(t *testing.T, mws []browser.Middleware, actions ...domain.Action) *browser.Store {
	t.Helper()
	s := browser.NewStore(domain.BrowserState{}, mws)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	for _, a := range actions {
		s.Dispatch(a)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
	return s
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	run(t, []browser.Middleware{middleware.Logging[state, action](logger)},
		domain.NewAddTab("https://a.test", true, domain.WithTabID("a")),
		domain.SelectTab{TabID: "missing"},
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "action=add_tab")
	assert.Contains(t, lines[0], "changed=true")
	assert.Contains(t, lines[0], "revision=1")
	assert.Contains(t, lines[1], "action=select_tab")
	assert.Contains(t, lines[1], "changed=false")
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)

	run(t, []browser.Middleware{
		middleware.Instrument[state, action](m),
		middleware.DropKinds[state, action]([]string{domain.KindReload}, middleware.CountDropped(m)),
	},
		domain.NewAddTab("https://a.test", true, domain.WithTabID("a")),
		domain.NewAddTab("https://b.test", false, domain.WithTabID("b")),
		domain.SelectTab{TabID: "b"},
		domain.SelectTab{TabID: "b"},
		domain.Reload{TabID: "a"},
	)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Collectors()[0].(*prometheus.CounterVec).WithLabelValues(domain.KindAddTab)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Collectors()[0].(*prometheus.CounterVec).WithLabelValues(domain.KindSelectTab)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Collectors()[2]), "only state changes count as commits")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Collectors()[3].(*prometheus.CounterVec).WithLabelValues(domain.KindReload)))

	count, err := testutil.GatherAndCount(reg, "tabstate_dispatch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "one histogram series per kind")
}

func TestNewMetrics_Unregistered(t *testing.T) {
	m := middleware.NewMetrics(nil)
	assert.Len(t, m.Collectors(), 4)

	reg := prometheus.NewRegistry()
	for _, c := range m.Collectors() {
		require.NoError(t, reg.Register(c))
	}
}

func TestDrop(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	blocked := func(a domain.Action) bool {
		add, ok := a.(domain.AddTab)
		return ok && add.Tab.Content.Private
	}
	s := run(t, []browser.Middleware{middleware.Drop[state, action](blocked, middleware.LogDropped(logger))},
		domain.NewAddTab("https://secret.test", true, domain.WithPrivate()),
		domain.NewAddTab("https://public.test", true, domain.WithTabID("pub")),
	)

	assert.Equal(t, []string{"pub"}, s.State().TabIDs())
	assert.Contains(t, buf.String(), "action dropped")
	assert.Contains(t, buf.String(), "action=add_tab")
}

func TestTranslate(t *testing.T) {
	forceHTTPS := func(a domain.Action) domain.Action {
		if add, ok := a.(domain.AddTab); ok {
			add.Tab.Content.URL = strings.Replace(add.Tab.Content.URL, "http://", "https://", 1)
			return add
		}
		return a
	}
	s := run(t, []browser.Middleware{middleware.Translate[state, action](forceHTTPS)},
		domain.NewAddTab("http://a.test", true, domain.WithTabID("a")),
	)

	tab, ok := s.State().FindTab("a")
	require.True(t, ok)
	assert.Equal(t, "https://a.test", tab.Content.URL)
}
