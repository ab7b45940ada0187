package store

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Observer is called with every committed state a subscription is entitled to.
type Observer[S any] func(state S)

// SubscriptionState is the lifecycle position of a Subscription.
type SubscriptionState int32

const (
	SubscriptionActive SubscriptionState = iota
	SubscriptionPaused
	SubscriptionUnsubscribed
)

func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionActive:
		return "active"
	case SubscriptionPaused:
		return "paused"
	case SubscriptionUnsubscribed:
		return "unsubscribed"
	default:
		return fmt.Sprintf("SubscriptionState(%d)", int32(s))
	}
}

type observeConfig struct {
	initial   bool
	redeliver bool
	paused    bool
}

// ObserveOption configures a single subscription.
type ObserveOption func(*observeConfig)

// ReceiveInitialState controls whether the observer is called with the current
// state during registration.
func ReceiveInitialState(receive bool) ObserveOption {
	return func(c *observeConfig) {
		c.initial = receive
	}
}

// WithRedelivery overrides the store's ResumePolicy for one subscription.
func WithRedelivery(redeliver bool) ObserveOption {
	return func(c *observeConfig) {
		c.redeliver = redeliver
	}
}

// StartPaused registers the subscription in the paused state. No initial state is
// delivered; the first Resume decides what the observer sees.
func StartPaused() ObserveOption {
	return func(c *observeConfig) {
		c.paused = true
	}
}

// owner is the part of a Store a Subscription needs. It hides the action type.
type owner[S any] interface {
	Revision() uint64
	remove(sub *Subscription[S])
	redeliver(sub *Subscription[S])
}

// Subscription is a registered observer. It moves between active and paused any
// number of times and ends in the terminal unsubscribed state.
type Subscription[S any] struct {
	store     owner[S]
	observer  Observer[S]
	redeliver bool

	status atomic.Int32
	// floor is the revision current at the last Resume. Commits at or below it are
	// not delivered.
	floor   atomic.Uint64
	pending atomic.Bool

	deliverMu sync.Mutex
	delivered uint64 // guarded by deliverMu

	bindMu  sync.Mutex
	binding Binding
}

func newSubscription[S any](store owner[S], observer Observer[S], cfg observeConfig) *Subscription[S] {
	sub := &Subscription[S]{
		store:     store,
		observer:  observer,
		redeliver: cfg.redeliver,
	}
	if cfg.paused {
		sub.status.Store(int32(SubscriptionPaused))
	}
	return sub
}

// State reports where the subscription is in its lifecycle.
func (s *Subscription[S]) State() SubscriptionState {
	return SubscriptionState(s.status.Load())
}

// Pause suppresses notifications until Resume. It is a no-op unless the
// subscription is active.
func (s *Subscription[S]) Pause() {
	s.status.CompareAndSwap(int32(SubscriptionActive), int32(SubscriptionPaused))
}

// Resume re-enables notifications for states committed from now on. When
// redelivery is enabled the current state is also delivered once, from the
// writer goroutine after Resume returns. It is a no-op
// unless the subscription is paused.
func (s *Subscription[S]) Resume() {
	if s.State() != SubscriptionPaused {
		return
	}
	s.floor.Store(s.store.Revision())
	if s.redeliver {
		s.pending.Store(true)
	}
	if !s.status.CompareAndSwap(int32(SubscriptionPaused), int32(SubscriptionActive)) {
		s.pending.Store(false)
		return
	}
	if s.redeliver {
		s.store.redeliver(s)
	}
}

// Unsubscribe removes the subscription from its store and releases its Binding.
// It is terminal and idempotent. A notification already running is not
// interrupted.
func (s *Subscription[S]) Unsubscribe() {
	if SubscriptionState(s.status.Swap(int32(SubscriptionUnsubscribed))) == SubscriptionUnsubscribed {
		return
	}
	s.store.remove(s)

	s.bindMu.Lock()
	binding := s.binding
	s.binding = nil
	s.bindMu.Unlock()
	if binding != nil {
		binding.Unbind()
	}
}

// Bind attaches a Binding whose Unbind is called on Unsubscribe. A previous
// Binding is released. Binding an unsubscribed subscription releases b at once.
func (s *Subscription[S]) Bind(b Binding) {
	s.bindMu.Lock()
	if s.State() == SubscriptionUnsubscribed {
		s.bindMu.Unlock()
		b.Unbind()
		return
	}
	previous := s.binding
	s.binding = b
	s.bindMu.Unlock()
	if previous != nil && previous != b {
		previous.Unbind()
	}
}

// deliver hands snap to the observer when the subscription is entitled to it.
// Redelivery (force) is honoured only if no newer commit reached the observer
// since the Resume that requested it.
func (s *Subscription[S]) deliver(snap *snapshot[S], force bool) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.State() != SubscriptionActive {
		return
	}
	if force {
		if !s.pending.CompareAndSwap(true, false) || snap.revision < s.delivered {
			return
		}
	} else {
		if snap.revision <= s.floor.Load() || snap.revision <= s.delivered {
			return
		}
		s.pending.Store(false)
	}
	s.delivered = snap.revision
	s.observer(snap.value)
}
