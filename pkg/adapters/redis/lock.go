package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tabstate/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockLost is returned by an UnlockFunc when the lease expired and the key is
// no longer held by this owner.
var ErrLockLost = errors.New("lock lost before release")

// DefaultLockRetry is the polling interval while a key is held elsewhere.
const DefaultLockRetry = 50 * time.Millisecond

var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker implements ports.DistributedLocker with SET NX PX and a token-checked
// release.
type Locker struct {
	client backend.UniversalClient
	prefix string
	retry  time.Duration
}

type LockerOption func(*Locker)

func WithLockRetry(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// NewLocker creates a locker whose keys are prefix + "lock:" + key.
func NewLocker(client backend.UniversalClient, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{client: client, prefix: prefix, retry: DefaultLockRetry}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the Redis key guarding key.
func (l *Locker) Key(key string) string {
	return l.prefix + "lock:" + key
}

// Lock polls until the key is acquired or ctx is done. The lease expires after ttl
// unless released first.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.Key(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				n, err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Int()
				if err != nil {
					return fmt.Errorf("redis unlock %s: %w", key, err)
				}
				if n == 0 {
					return fmt.Errorf("redis unlock %s: %w", key, ErrLockLost)
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
