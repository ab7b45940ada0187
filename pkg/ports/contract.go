package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEngineContract runs a suite of tests to verify that an Engine implementation
// adheres to the defined interface contract.
func RunEngineContract(t *testing.T, engine Engine) {
	ctx := context.Background()

	t.Run("Distinct Sessions", func(t *testing.T) {
		a, err := engine.CreateSession(ctx, SessionOptions{TabID: "contract-a"})
		require.NoError(t, err)
		defer a.Close()
		b, err := engine.CreateSession(ctx, SessionOptions{TabID: "contract-b", Private: true})
		require.NoError(t, err)
		defer b.Close()

		assert.NotEmpty(t, a.ID())
		assert.NotEqual(t, a.ID(), b.ID())
	})

	t.Run("Load Reports Location", func(t *testing.T) {
		session, err := engine.CreateSession(ctx, SessionOptions{TabID: "contract-load"})
		require.NoError(t, err)
		defer session.Close()

		rec := &recordingObserver{}
		session.Register(rec)
		require.NoError(t, session.LoadURL(ctx, "https://example.test/"))

		assert.Eventually(t, func() bool {
			return rec.lastLocation() == "https://example.test/"
		}, time.Second, 5*time.Millisecond, "location change should be reported")
	})

	t.Run("Back and Forward", func(t *testing.T) {
		session, err := engine.CreateSession(ctx, SessionOptions{TabID: "contract-history"})
		require.NoError(t, err)
		defer session.Close()

		rec := &recordingObserver{}
		session.Register(rec)
		require.NoError(t, session.LoadURL(ctx, "https://one.test/"))
		require.NoError(t, session.LoadURL(ctx, "https://two.test/"))
		require.Eventually(t, func() bool { return rec.lastLocation() == "https://two.test/" }, time.Second, 5*time.Millisecond)

		require.NoError(t, session.GoBack(ctx))
		assert.Eventually(t, func() bool { return rec.lastLocation() == "https://one.test/" }, time.Second, 5*time.Millisecond)

		require.NoError(t, session.GoForward(ctx))
		assert.Eventually(t, func() bool { return rec.lastLocation() == "https://two.test/" }, time.Second, 5*time.Millisecond)
	})

	t.Run("Closed Session", func(t *testing.T) {
		session, err := engine.CreateSession(ctx, SessionOptions{TabID: "contract-closed"})
		require.NoError(t, err)
		require.NoError(t, session.Close())

		assert.ErrorIs(t, session.LoadURL(ctx, "https://example.test/"), domain.ErrSessionClosed)
		assert.ErrorIs(t, session.Reload(ctx), domain.ErrSessionClosed)
	})
}

// RunLockerContract runs a suite of tests to verify that a DistributedLocker
// implementation adheres to the defined interface contract.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()
	key := "contract-window-" + time.Now().Format("20060102150405.000")

	t.Run("Exclusive", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(short, key, 5*time.Second)
		assert.Error(t, err, "second Lock on a held key must fail once ctx is done")

		require.NoError(t, unlock(ctx))

		again, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err, "key must be free after unlock")
		require.NoError(t, again(ctx))
	})

	t.Run("Independent Keys", func(t *testing.T) {
		a, err := locker.Lock(ctx, key+"-a", 5*time.Second)
		require.NoError(t, err)
		defer a(ctx)

		b, err := locker.Lock(ctx, key+"-b", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, b(ctx))
	})
}

type recordingObserver struct {
	mu        sync.Mutex
	locations []string
}

func (r *recordingObserver) OnLocationChange(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations = append(r.locations, url)
}

func (r *recordingObserver) lastLocation() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.locations) == 0 {
		return ""
	}
	return r.locations[len(r.locations)-1]
}

func (r *recordingObserver) OnProgress(int)                       {}
func (r *recordingObserver) OnLoadingStateChange(bool)            {}
func (r *recordingObserver) OnTitleChange(string)                 {}
func (r *recordingObserver) OnNavigationStateChange(bool, bool)   {}
func (r *recordingObserver) OnSecurityChange(domain.SecurityInfo) {}
func (r *recordingObserver) OnLongPress(domain.HitResult)         {}
func (r *recordingObserver) OnCrash()                             {}
