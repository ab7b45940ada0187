package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/internal/config"
	"github.com/aretw0/tabstate/internal/presentation/tui"
	"github.com/aretw0/tabstate/internal/script"
	"github.com/aretw0/tabstate/pkg/domain"
)

// ReplayOptions configures Replay.
type ReplayOptions struct {
	Config     config.Config
	ScriptPath string
	// Out receives the final state. Terminals get styled markdown.
	Out    io.Writer
	JSON   bool
	Logger *slog.Logger
}

// replayResult is the JSON form of the final state.
type replayResult struct {
	Script   string              `json:"script,omitempty"`
	Revision uint64              `json:"revision"`
	State    domain.BrowserState `json:"state"`
}

// Replay runs a script against a fresh window backed by the in-memory engine and
// prints the final state.
func Replay(ctx context.Context, opts ReplayOptions) error {
	logger := opts.Logger
	s, err := script.Load(opts.ScriptPath)
	if err != nil {
		return err
	}

	browserOpts := browserOptions(opts.Config, logger)
	client, pub := newPublisher(opts.Config.Redis, logger)
	if pub != nil {
		browserOpts = append(browserOpts, tabstate.WithBroadcaster(pub))
	}

	b, err := tabstate.New(ctx, browserOpts...)
	if err != nil {
		closePublisher(ctx, client, pub, logger)
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			logger.Warn("window did not close cleanly", "err", err)
		}
		closePublisher(closeCtx, client, pub, logger)
	}()

	logger.Info("replaying script", "path", opts.ScriptPath, "name", s.Name, "steps", len(s.Steps))
	if err := s.Run(ctx, b, script.WithWaiter(b), script.WithLogger(logger)); err != nil {
		return fmt.Errorf("replay %s: %w", opts.ScriptPath, err)
	}
	if err := b.Wait(ctx); err != nil {
		return err
	}

	state, revision := b.Store().Snapshot()
	if opts.JSON {
		enc := json.NewEncoder(opts.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(replayResult{Script: s.Name, Revision: revision, State: state})
	}
	if err := tui.RenderState(opts.Out, rendererFor(opts.Out), state, revision); err != nil {
		return err
	}
	printSystemMessage(opts.Out, "replayed %d step(s) from %s", len(s.Steps), opts.ScriptPath)
	return nil
}

// rendererFor styles output for terminals only.
func rendererFor(w io.Writer) tui.Renderer {
	if f, ok := w.(*os.File); ok {
		return tui.ForFile(f)
	}
	return tui.Plain
}
