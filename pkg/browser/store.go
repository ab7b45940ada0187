package browser

import (
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/store"
)

// Store is a store over browser state.
type Store = store.Store[domain.BrowserState, domain.Action]

// Middleware is a middleware over browser state and actions.
type Middleware = store.Middleware[domain.BrowserState, domain.Action]

// NewStore creates a browser store holding initial, reduced by Reducers.
func NewStore(initial domain.BrowserState, middleware []Middleware, opts ...store.Option) *Store {
	return store.New(initial, Reducers(), middleware, opts...)
}
