package script

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/domain"
)

// Target is the store a script drives.
type Target interface {
	Dispatch(action domain.Action)
	Flush(ctx context.Context) error
	State() domain.BrowserState
	Revision() uint64
}

// Waiter joins outstanding side effects, such as engine middleware work.
type Waiter interface {
	Wait(ctx context.Context) error
}

// RunOption configures Run.
type RunOption func(*runner)

type runner struct {
	logger *slog.Logger
	waiter Waiter
}

// WithLogger logs every step at debug level.
func WithLogger(logger *slog.Logger) RunOption {
	return func(r *runner) { r.logger = logger }
}

// WithWaiter is used by wait steps and before every expect step. Without one,
// wait steps only flush the store.
func WithWaiter(w Waiter) RunOption {
	return func(r *runner) { r.waiter = w }
}

// Run replays s against target and flushes it at the end.
func (s *Script) Run(ctx context.Context, target Target, opts ...RunOption) error {
	r := &runner{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(ctx, target, st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return target.Flush(ctx)
}

func (r *runner) step(ctx context.Context, target Target, st Step) error {
	switch {
	case st.Action != nil:
		r.logger.Debug("dispatch", "action", st.Action.Kind())
		target.Dispatch(st.Action)
		return nil

	case st.Wait:
		r.logger.Debug("wait")
		return r.settle(ctx, target)

	case st.Sleep > 0:
		r.logger.Debug("sleep", "duration", st.Sleep)
		t := time.NewTimer(st.Sleep)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case st.Expect != nil:
		if err := r.settle(ctx, target); err != nil {
			return err
		}
		return st.Expect.check(target.State())
	}
	return nil
}

// maxSettleRounds bounds settle when side effects keep dispatching.
const maxSettleRounds = 16

// settle flushes and waits for side effects until a round commits nothing new.
func (r *runner) settle(ctx context.Context, target Target) error {
	if err := target.Flush(ctx); err != nil {
		return err
	}
	if r.waiter == nil {
		return nil
	}
	for range maxSettleRounds {
		before := target.Revision()
		if err := r.waiter.Wait(ctx); err != nil {
			return err
		}
		if err := target.Flush(ctx); err != nil {
			return err
		}
		if target.Revision() == before {
			return nil
		}
	}
	return nil
}

func (e *Expect) check(state domain.BrowserState) error {
	if e.TabCount != nil && len(state.Tabs) != *e.TabCount {
		return fmt.Errorf("%w: tab_count is %d, want %d", ErrExpectation, len(state.Tabs), *e.TabCount)
	}
	if e.SelectedTabID != nil && state.SelectedTabID != *e.SelectedTabID {
		return fmt.Errorf("%w: selected_tab_id is %q, want %q", ErrExpectation, state.SelectedTabID, *e.SelectedTabID)
	}
	for _, id := range slices.Sorted(maps.Keys(e.URLs)) {
		tab, ok := state.FindTab(id)
		if !ok {
			return fmt.Errorf("%w: tab %q: %w", ErrExpectation, id, domain.ErrTabNotFound)
		}
		if tab.Content.URL != e.URLs[id] {
			return fmt.Errorf("%w: tab %q url is %q, want %q", ErrExpectation, id, tab.Content.URL, e.URLs[id])
		}
	}
	return nil
}
