package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lease obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates which process owns the writer of a window store.
// A store has exactly one writer, so two replicas serving the same window must not
// both create it.
type DistributedLocker interface {
	// Lock acquires the lease for key (a window id). It blocks until the lease is
	// acquired or ctx is done. The lease expires after ttl unless released.
	// The returned UnlockFunc MUST be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
