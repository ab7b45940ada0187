package store_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tabstate/pkg/store"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int
	Items []string
}

type increment struct{ By int }

type appendItem struct{ Item string }

type reset struct{}

type unknown struct{}

type boom struct{}

func (increment) Kind() string { return "increment" }

func reduceCount(state counter, action any) counter {
	switch a := action.(type) {
	case increment:
		state.Count += a.By
	case reset:
		state.Count = 0
	case boom:
		panic("reducer exploded")
	}
	return state
}

func reduceItems(state counter, action any) counter {
	if a, ok := action.(appendItem); ok {
		state.Items = append(slices.Clone(state.Items), a.Item)
	}
	return state
}

func newCounterStore(t *testing.T, middleware []store.Middleware[counter, any], opts ...store.Option) *store.Store[counter, any] {
	t.Helper()
	s := store.New(counter{}, []store.Reducer[counter, any]{reduceCount, reduceItems}, middleware, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func flush(t *testing.T, s interface{ Flush(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
}

// recorder collects observed values from the writer goroutine.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) observe(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.values)
}

func counts(states []counter) []int {
	out := make([]int, len(states))
	for i, s := range states {
		out[i] = s.Count
	}
	return out
}
