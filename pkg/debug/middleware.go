package debug

import (
	"time"

	"github.com/aretw0/tabstate/pkg/ports"
	"github.com/aretw0/tabstate/pkg/store"
	"github.com/google/uuid"
)

// Middleware broadcasts a START line before the action continues and an END line
// once it has been reduced, or dropped by later middleware.
func Middleware[S, A any](b ports.Broadcaster) store.Middleware[S, A] {
	return func(_ store.MiddlewareStore[S, A], next store.Next[A], action A) {
		id := uuid.NewString()
		b.Broadcast(FormatStart(id, store.ActionKind(action)))
		start := time.Now()
		next(action)
		b.Broadcast(FormatEnd(id, time.Since(start)))
	}
}

// Fanout forwards each line to every broadcaster in order.
type Fanout []ports.Broadcaster

func (f Fanout) Broadcast(line string) {
	for _, b := range f {
		b.Broadcast(line)
	}
}

// Discard is a Broadcaster that drops every line.
var Discard ports.Broadcaster = discard{}

type discard struct{}

func (discard) Broadcast(string) {}
