package store

import (
	"context"
	"sync"
)

// Binding ties a Subscription to an external lifecycle. Unbind detaches the
// binding from that lifecycle and is called once the subscription is
// unsubscribed.
type Binding interface {
	Unbind()
}

// Observable is implemented by *Store for any action type.
type Observable[S any] interface {
	ObserveWith(observer Observer[S], opts ...ObserveOption) *Subscription[S]
}

type contextBinding struct {
	stop func() bool
}

func (b *contextBinding) Unbind() { b.stop() }

// BindContext unsubscribes sub when ctx is done.
func BindContext[S any](ctx context.Context, sub *Subscription[S]) *Subscription[S] {
	sub.Bind(&contextBinding{stop: context.AfterFunc(ctx, sub.Unsubscribe)})
	return sub
}

// ObserveForever registers observer with no lifecycle binding. The subscription
// lives until Unsubscribe is called explicitly.
func ObserveForever[S any](store Observable[S], observer Observer[S]) *Subscription[S] {
	return store.ObserveWith(observer)
}

// LifecycleState is the position of a LifecycleOwner.
type LifecycleState int

const (
	LifecycleCreated LifecycleState = iota
	LifecycleStarted
	LifecycleDestroyed
)

// LifecycleEvent is a transition reported by a LifecycleOwner.
type LifecycleEvent int

const (
	LifecycleStart LifecycleEvent = iota
	LifecycleStop
	LifecycleDestroy
)

// LifecycleOwner is a host component that starts, stops and is destroyed, such as
// a screen or a long-running worker.
type LifecycleOwner interface {
	CurrentState() LifecycleState
	// AddLifecycleObserver registers fn for future transitions and returns a
	// function that removes it.
	AddLifecycleObserver(fn func(LifecycleEvent)) (remove func())
}

// Lifecycle is a ready-made LifecycleOwner driven by explicit calls. Duplicate
// transitions are ignored.
type Lifecycle struct {
	mu        sync.Mutex
	state     LifecycleState
	observers map[int]func(LifecycleEvent)
	nextID    int
}

// NewLifecycle returns a Lifecycle in the created state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{observers: make(map[int]func(LifecycleEvent))}
}

func (l *Lifecycle) CurrentState() LifecycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) AddLifecycleObserver(fn func(LifecycleEvent)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LifecycleDestroyed {
		return func() {}
	}
	id := l.nextID
	l.nextID++
	l.observers[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.observers, id)
		l.mu.Unlock()
	}
}

// Start moves a created lifecycle to started.
func (l *Lifecycle) Start() { l.transition(LifecycleCreated, LifecycleStarted, LifecycleStart) }

// Stop moves a started lifecycle back to created.
func (l *Lifecycle) Stop() { l.transition(LifecycleStarted, LifecycleCreated, LifecycleStop) }

// Destroy ends the lifecycle. A started lifecycle is stopped first.
func (l *Lifecycle) Destroy() {
	l.Stop()
	l.mu.Lock()
	if l.state == LifecycleDestroyed {
		l.mu.Unlock()
		return
	}
	l.state = LifecycleDestroyed
	observers := l.snapshot()
	clear(l.observers)
	l.mu.Unlock()
	for _, fn := range observers {
		fn(LifecycleDestroy)
	}
}

func (l *Lifecycle) transition(from, to LifecycleState, event LifecycleEvent) {
	l.mu.Lock()
	if l.state != from {
		l.mu.Unlock()
		return
	}
	l.state = to
	observers := l.snapshot()
	l.mu.Unlock()
	for _, fn := range observers {
		fn(event)
	}
}

// snapshot copies the observers in registration order. Callers hold mu.
func (l *Lifecycle) snapshot() []func(LifecycleEvent) {
	out := make([]func(LifecycleEvent), 0, len(l.observers))
	for id := 0; id < l.nextID; id++ {
		if fn, ok := l.observers[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

type removeBinding struct {
	once   sync.Once
	remove func()
}

func (b *removeBinding) Unbind() { b.once.Do(b.remove) }

// ObserveLifecycle registers observer for as long as owner lives. Each time owner
// starts, a delivery of the current state is queued on the store's writer
// goroutine; it does not happen inside the start callback and is skipped if a newer
// commit reaches the observer first. Nothing is delivered while owner is stopped,
// and the subscription ends when owner is destroyed. It returns nil if owner is
// already destroyed.
func ObserveLifecycle[S any](store Observable[S], owner LifecycleOwner, observer Observer[S]) *Subscription[S] {
	if owner.CurrentState() == LifecycleDestroyed {
		return nil
	}
	sub := store.ObserveWith(observer, StartPaused(), WithRedelivery(true))
	remove := owner.AddLifecycleObserver(func(event LifecycleEvent) {
		switch event {
		case LifecycleStart:
			sub.Resume()
		case LifecycleStop:
			sub.Pause()
		case LifecycleDestroy:
			sub.Unsubscribe()
		}
	})
	sub.Bind(&removeBinding{remove: remove})

	switch owner.CurrentState() {
	case LifecycleStarted:
		sub.Resume()
	case LifecycleDestroyed:
		sub.Unsubscribe()
	}
	return sub
}

// Attachable is a host view that can be attached to and detached from a display.
type Attachable interface {
	IsAttached() bool
	// AddAttachListener registers fn for future attach (true) and detach (false)
	// transitions and returns a function that removes it.
	AddAttachListener(fn func(attached bool)) (remove func())
}

// Attachment is a ready-made Attachable driven by explicit calls.
type Attachment struct {
	mu        sync.Mutex
	attached  bool
	listeners map[int]func(bool)
	nextID    int
}

func NewAttachment() *Attachment {
	return &Attachment{listeners: make(map[int]func(bool))}
}

func (a *Attachment) IsAttached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attached
}

func (a *Attachment) AddAttachListener(fn func(bool)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Attachment) Attach() { a.set(true) }

func (a *Attachment) Detach() { a.set(false) }

func (a *Attachment) set(attached bool) {
	a.mu.Lock()
	if a.attached == attached {
		a.mu.Unlock()
		return
	}
	a.attached = attached
	listeners := make([]func(bool), 0, len(a.listeners))
	for id := 0; id < a.nextID; id++ {
		if fn, ok := a.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(attached)
	}
}

// ObserveAttached registers observer while view is attached. Attaching queues a
// delivery of the current state on the store's writer goroutine, so the observer
// gets it after the attach callback returns. The subscription ends when view
// detaches.
func ObserveAttached[S any](store Observable[S], view Attachable, observer Observer[S]) *Subscription[S] {
	sub := store.ObserveWith(observer, StartPaused(), WithRedelivery(true))
	remove := view.AddAttachListener(func(attached bool) {
		if attached {
			sub.Resume()
			return
		}
		sub.Unsubscribe()
	})
	sub.Bind(&removeBinding{remove: remove})

	if view.IsAttached() {
		sub.Resume()
	}
	return sub
}
