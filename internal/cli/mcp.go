package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/internal/config"
	"github.com/aretw0/tabstate/pkg/adapters/mcp"
)

// MCPOptions configures ServeMCP.
type MCPOptions struct {
	Config    config.Config
	Logger    *slog.Logger
	Version   string
	Transport string
	// Addr and BaseURL are used by the sse transport.
	Addr    string
	BaseURL string
	In      io.Reader
	Out     io.Writer
}

// ServeMCP exposes one window as an MCP server until ctx is done or the stdio
// input closes.
func ServeMCP(ctx context.Context, opts MCPOptions) error {
	logger := opts.Logger
	switch opts.Transport {
	case "", "stdio", "sse":
	default:
		return fmt.Errorf("unknown transport %q: supported are stdio and sse", opts.Transport)
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
		closeCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = b.Close(closeCtx)
		closePublisher(closeCtx, client, pub, logger)
	}()

	srv := mcp.NewServer(b.Store(), mcp.WithVersion(opts.Version), mcp.WithLogger(logger))

	if opts.Transport == "sse" {
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + opts.Addr
		}
		return srv.ServeSSE(ctx, opts.Addr, baseURL)
	}
	logger.Info("MCP server listening (stdio)")
	return srv.ServeStdio(ctx, opts.In, opts.Out)
}
