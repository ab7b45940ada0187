// Package mcp exposes a browser store as a Model Context Protocol server, so that
// agents can read the tab state and dispatch actions as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/codec"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StateURI is the resource holding the current state.
const StateURI = "tabstate://state"

// StateResponse is the output of get_state and dispatch_action.
type StateResponse struct {
	Revision uint64              `json:"revision" jsonschema_description:"Number of commits so far"`
	State    domain.BrowserState `json:"state" jsonschema_description:"The browser state"`
}

// TabsResponse is the output of list_tabs.
type TabsResponse struct {
	SelectedTabID string                   `json:"selected_tab_id,omitempty" jsonschema_description:"Id of the selected tab"`
	Tabs          []domain.TabSessionState `json:"tabs" jsonschema_description:"Open tabs in order"`
}

// DispatchArgs are the arguments of dispatch_action.
type DispatchArgs struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

type listTabsArgs struct {
	Private *bool `json:"private,omitempty"`
}

// Server wraps a store and exposes it as an MCP server.
type Server struct {
	store     *browser.Store
	codec     *codec.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

type Option func(*options)

type options struct {
	version string
	logger  *slog.Logger
	codec   *codec.Registry
}

func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithCodec(r *codec.Registry) Option {
	return func(o *options) { o.codec = r }
}

// NewServer creates a new MCP server for s.
func NewServer(s *browser.Store, opts ...Option) *Server {
	o := options{version: "dev", logger: logging.NewNop(), codec: codec.NewStandard()}
	for _, opt := range opts {
		opt(&o)
	}
	srv := &Server{
		store:     s,
		codec:     o.codec,
		logger:    o.logger,
		mcpServer: server.NewMCPServer("tabstate-mcp", o.version),
	}
	srv.registerTools()
	srv.registerResources()
	return srv
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves JSON-RPC on in and out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current browser state: tabs, their content and engine links, and the selected tab."),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("list_tabs",
		mcp.WithDescription("List open tabs in order."),
		mcp.WithBoolean("private", mcp.Description("Only private (true) or only normal (false) tabs")),
		mcp.WithOutputSchema[TabsResponse](),
	), mcp.NewStructuredToolHandler(s.handleListTabs))

	s.mcpServer.AddTool(mcp.NewTool("dispatch_action",
		mcp.WithDescription("Dispatch an action and return the state once it has been reduced."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Action kind"), mcp.Enum(s.codec.Kinds()...)),
		mcp.WithObject("payload", mcp.Description("Action fields, e.g. {\"tab_id\": \"...\"} or {\"url\": \"...\"} for add_tab")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleDispatch))
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (StateResponse, error) {
	state, rev := s.store.Snapshot()
	return StateResponse{Revision: rev, State: state}, nil
}

func (s *Server) handleListTabs(ctx context.Context, request mcp.CallToolRequest, args listTabsArgs) (TabsResponse, error) {
	state := s.store.State()
	tabs := state.Tabs
	if args.Private != nil {
		if *args.Private {
			tabs = state.PrivateTabs()
		} else {
			tabs = state.NormalTabs()
		}
	}
	if tabs == nil {
		tabs = []domain.TabSessionState{}
	}
	return TabsResponse{SelectedTabID: state.SelectedTabID, Tabs: tabs}, nil
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest, args DispatchArgs) (StateResponse, error) {
	action, err := s.codec.Decode(args.Kind, args.Payload)
	if err != nil {
		s.logger.Warn("MCP dispatch_action: rejected", "kind", args.Kind, "err", err)
		return StateResponse{}, err
	}
	s.store.Dispatch(action)
	if err := s.store.Flush(ctx); err != nil {
		return StateResponse{}, err
	}
	state, rev := s.store.Snapshot()
	return StateResponse{Revision: rev, State: state}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StateURI, "Current Browser State",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		state, rev := s.store.Snapshot()
		data, err := json.Marshal(StateResponse{Revision: rev, State: state})
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      StateURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
