package store

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/aretw0/tabstate/internal/logging"
)

// snapshot pairs a committed state with its revision.
type snapshot[S any] struct {
	value    S
	revision uint64
}

// Equaler is implemented by state types that define their own equality. A store
// whose state implements it uses Equal to detect changes instead of
// reflect.DeepEqual.
type Equaler[S any] interface {
	Equal(other S) bool
}

// Store is the single owner of a state value of type S, changed only by actions of
// type A. It is safe for concurrent use.
type Store[S, A any] struct {
	reducers []Reducer[S, A]
	pipeline Next[A]
	equal    func(a, b S) bool

	current atomic.Pointer[snapshot[S]]
	queue   *queue
	done    chan struct{}

	mu   sync.Mutex // guards subs and orders commits against Observe
	subs []*Subscription[S]

	logger   *slog.Logger
	onError  ErrorHandler
	resume   ResumePolicy
	conflict func(Conflict)
	checking bool

	closeOnce sync.Once
}

// New creates a Store holding initial and starts its writer goroutine.
// The reducer and middleware lists are fixed for the lifetime of the store.
func New[S, A any](initial S, reducers []Reducer[S, A], middleware []Middleware[S, A], opts ...Option) *Store[S, A] {
	cfg := settings{
		logger:  logging.NewNop(),
		onError: Repanic,
		resume:  ResumeSkip,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store[S, A]{
		reducers: slices.Clone(reducers),
		equal:    func(a, b S) bool { return reflect.DeepEqual(a, b) },
		queue:    newQueue(),
		done:     make(chan struct{}),
		logger:   cfg.logger,
		onError:  cfg.onError,
		resume:   cfg.resume,
		conflict: cfg.conflict,
		checking: cfg.checking,
	}
	if _, ok := any(initial).(Equaler[S]); ok {
		s.equal = func(a, b S) bool { return any(a).(Equaler[S]).Equal(b) }
	}
	if s.checking && s.conflict == nil {
		s.conflict = func(c Conflict) {
			s.logger.Warn("multiple reducers changed state for one action",
				"action", ActionKind(c.Action),
				"reducers", c.Reducers,
			)
		}
	}

	s.current.Store(&snapshot[S]{value: initial})
	s.pipeline = buildChain[S, A](s, slices.Clone(middleware), s.reduceAndCommit)

	go s.run()
	return s
}

// Dispatch queues action for processing and returns immediately. Actions are
// processed one at a time in the order they were queued. Dispatching on a closed
// store drops the action.
func (s *Store[S, A]) Dispatch(action A) {
	ok := s.queue.push(task{
		action: action,
		run:    func() { s.pipeline(action) },
	})
	if !ok {
		s.logger.Warn("dispatch on closed store dropped", "action", ActionKind(action))
	}
}

// State returns the last committed state. It never blocks.
func (s *Store[S, A]) State() S {
	return s.current.Load().value
}

// Revision returns the number of commits made so far. It increases by one for
// every state change and never for no-op dispatches.
func (s *Store[S, A]) Revision() uint64 {
	return s.current.Load().revision
}

// Snapshot returns the last committed state together with its revision.
func (s *Store[S, A]) Snapshot() (S, uint64) {
	snap := s.current.Load()
	return snap.value, snap.revision
}

// Observe registers observer for state changes. When receiveInitialState is true
// the observer is called synchronously with the current state before Observe
// returns, and before any notification caused by a later dispatch.
func (s *Store[S, A]) Observe(receiveInitialState bool, observer Observer[S]) *Subscription[S] {
	return s.ObserveWith(observer, ReceiveInitialState(receiveInitialState))
}

// ObserveWith registers observer with explicit options. By default the initial
// state is delivered and the subscription starts active.
func (s *Store[S, A]) ObserveWith(observer Observer[S], opts ...ObserveOption) *Subscription[S] {
	cfg := observeConfig{
		initial:   true,
		redeliver: s.resume == ResumeRedeliver,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sub := newSubscription[S](s, observer, cfg)

	s.mu.Lock()
	snap := s.current.Load()
	// Held until the initial delivery is done so that a concurrent commit cannot
	// overtake it.
	sub.deliverMu.Lock()
	sub.delivered = snap.revision
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	func() {
		defer sub.deliverMu.Unlock()
		if cfg.initial && !cfg.paused {
			observer(snap.value)
		}
	}()
	return sub
}

// Flush blocks until every action queued before the call has been processed. Like
// Close it must not be called from the writer goroutine, that is from a
// middleware, reducer or observer: it would wait for itself until ctx is done.
func (s *Store[S, A]) Flush(ctx context.Context) error {
	reached := make(chan struct{})
	if !s.queue.push(task{run: func() { close(reached) }}) {
		return ErrStoreClosed
	}
	select {
	case <-reached:
		return nil
	case <-s.done:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting actions, processes those already queued and waits for the
// writer goroutine to exit. It must not be called from the writer goroutine, that
// is from a middleware, reducer or observer.
func (s *Store[S, A]) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.queue.close()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the writer goroutine has exited.
func (s *Store[S, A]) Done() <-chan struct{} {
	return s.done
}

// Subscriptions returns the number of registered subscriptions.
func (s *Store[S, A]) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store[S, A]) run() {
	defer close(s.done)
	for range s.queue.ready {
		for {
			batch, closed := s.queue.take()
			for _, t := range batch {
				s.execute(t)
			}
			if len(batch) > 0 {
				continue
			}
			if closed {
				return
			}
			break
		}
	}
}

func (s *Store[S, A]) execute(t task) {
	defer func() {
		if r := recover(); r != nil {
			// Already handed to onError by notify.
			if err, ok := r.(*DispatchError); ok {
				panic(err)
			}
			err := &DispatchError{Action: t.action, Value: r, Stack: debug.Stack()}
			s.logger.Error("store task failed", "action", ActionKind(t.action), "err", err)
			s.onError(err)
		}
	}()
	t.run()
}

// reduceAndCommit is the terminal step of the middleware chain.
func (s *Store[S, A]) reduceAndCommit(action A) {
	current := s.current.Load().value
	next := s.reduce(current, action)
	if s.equal(current, next) {
		return
	}
	s.commit(next, action)
}

func (s *Store[S, A]) reduce(state S, action A) S {
	if !s.checking {
		for _, reduce := range s.reducers {
			state = reduce(state, action)
		}
		return state
	}

	var changed []int
	for i, reduce := range s.reducers {
		next := reduce(state, action)
		if !s.equal(state, next) {
			changed = append(changed, i)
		}
		state = next
	}
	if len(changed) > 1 {
		s.conflict(Conflict{Action: action, Reducers: changed})
	}
	return state
}

func (s *Store[S, A]) commit(value S, action A) {
	s.mu.Lock()
	snap := &snapshot[S]{value: value, revision: s.current.Load().revision + 1}
	s.current.Store(snap)
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		s.notify(sub, snap, false, action)
	}
}

// notify delivers snap to one subscription. A panicking observer is reported to
// onError and does not keep the commit from the subscriptions after it.
func (s *Store[S, A]) notify(sub *Subscription[S], snap *snapshot[S], force bool, action any) {
	defer func() {
		if r := recover(); r != nil {
			err := &DispatchError{Action: action, Value: r, Stack: debug.Stack()}
			s.logger.Error("observer failed", "action", ActionKind(action), "revision", snap.revision, "err", err)
			s.onError(err)
		}
	}()
	sub.deliver(snap, force)
}

// remove drops sub from the fan-out list.
func (s *Store[S, A]) remove(sub *Subscription[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = slices.DeleteFunc(s.subs, func(candidate *Subscription[S]) bool {
		return candidate == sub
	})
}

// redeliver schedules a delivery of the current state to sub on the writer
// goroutine.
func (s *Store[S, A]) redeliver(sub *Subscription[S]) {
	s.queue.push(task{run: func() {
		s.notify(sub, s.current.Load(), true, nil)
	}})
}
