package ports

import "github.com/aretw0/tabstate/pkg/domain"

// ActionDispatcher accepts browser actions. A store satisfies it.
type ActionDispatcher interface {
	Dispatch(action domain.Action)
}

// Broadcaster receives debug protocol lines. Implementations must not block the
// caller; lines that cannot be delivered are dropped.
type Broadcaster interface {
	Broadcast(line string)
}
