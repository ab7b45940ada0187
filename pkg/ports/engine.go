package ports

import (
	"context"

	"github.com/aretw0/tabstate/pkg/domain"
)

// SessionOptions describe the engine session to create for a tab.
type SessionOptions struct {
	TabID   string
	Private bool
}

// Engine creates engine sessions. One session backs one tab.
type Engine interface {
	CreateSession(ctx context.Context, opts SessionOptions) (EngineSession, error)
}

// EngineSession drives a single page. Navigation calls return once the engine has
// accepted the request; progress is reported to the registered SessionObserver.
type EngineSession interface {
	ID() string

	// Register sets the observer for engine callbacks, replacing any previous one.
	Register(observer SessionObserver)

	LoadURL(ctx context.Context, url string) error
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	Reload(ctx context.Context) error

	// Close releases the session. Further calls return domain.ErrSessionClosed.
	Close() error
}

// SessionObserver receives engine callbacks for one session. Callbacks may arrive
// on any goroutine.
type SessionObserver interface {
	OnLocationChange(url string)
	OnProgress(progress int)
	OnLoadingStateChange(loading bool)
	OnTitleChange(title string)
	OnNavigationStateChange(canGoBack, canGoForward bool)
	OnSecurityChange(info domain.SecurityInfo)
	OnLongPress(hit domain.HitResult)
	OnCrash()
}
