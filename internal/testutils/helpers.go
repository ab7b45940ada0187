// Package testutils holds helpers shared by the tests of several packages.
package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/store"
	"github.com/stretchr/testify/require"
)

// Timeout bounds every blocking helper.
const Timeout = 2 * time.Second

// Context returns a context that expires after Timeout or at the end of the test.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewBrowserStore creates an empty browser store that is closed when the test ends.
func NewBrowserStore(t *testing.T, mw []browser.Middleware, opts ...store.Option) *browser.Store {
	t.Helper()
	s := browser.NewStore(domain.BrowserState{}, mw, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), Timeout)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

// Flush fails the test unless s drains within Timeout.
func Flush(t *testing.T, s interface{ Flush(context.Context) error }) {
	t.Helper()
	require.NoError(t, s.Flush(Context(t)))
}
