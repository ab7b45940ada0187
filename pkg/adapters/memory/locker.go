package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/tabstate/pkg/ports"
)

// lease is one held key. released is closed when it is unlocked.
type lease struct {
	expires  time.Time
	released chan struct{}
}

// Locker implements ports.DistributedLocker within a single process. It is meant
// for tests and single-instance deployments.
type Locker struct {
	mu     sync.Mutex
	leases map[string]*lease
	now    func() time.Time
}

var _ ports.DistributedLocker = (*Locker)(nil)

// NewLocker creates an empty locker.
func NewLocker() *Locker {
	return &Locker{
		leases: make(map[string]*lease),
		now:    time.Now,
	}
}

// Lock waits until key is free or its current lease expired.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		held, exists := l.leases[key]
		if !exists || !l.now().Before(held.expires) {
			mine := &lease{expires: l.now().Add(ttl), released: make(chan struct{})}
			l.leases[key] = mine
			l.mu.Unlock()
			return l.unlocker(key, mine), nil
		}
		wait := held.expires.Sub(l.now())
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-held.released:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
		timer.Stop()
	}
}

func (l *Locker) unlocker(key string, mine *lease) ports.UnlockFunc {
	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			if l.leases[key] == mine {
				delete(l.leases, key)
			}
			l.mu.Unlock()
			close(mine.released)
		})
		return nil
	}
}
