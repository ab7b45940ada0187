// Package http exposes browser stores over HTTP: state and tab reads, action
// dispatch through the codec, a server-sent event stream of state diffs and the
// Prometheus metrics endpoint.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/codec"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// resolver finds the store a request addresses.
type resolver func(r *http.Request) (*browser.Store, error)

type config struct {
	logger   *slog.Logger
	version  string
	gatherer prometheus.Gatherer
	codec    *codec.Registry
}

// Option configures the handler.
type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(c *config) { c.version = v }
}

// WithGatherer serves g on GET /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *config) { c.gatherer = g }
}

// WithCodec decodes POST /actions bodies with r instead of the standard registry.
func WithCodec(r *codec.Registry) Option {
	return func(c *config) { c.codec = r }
}

func newConfig(opts []Option) config {
	cfg := config{
		logger:   logging.NewNop(),
		version:  "dev",
		gatherer: prometheus.DefaultGatherer,
		codec:    codec.NewStandard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Server holds the handlers for one store, or for the windows of a manager.
type Server struct {
	cfg     config
	resolve resolver
}

// NewHandler serves a single store.
func NewHandler(s *browser.Store, opts ...Option) http.Handler {
	srv := &Server{
		cfg:     newConfig(opts),
		resolve: func(*http.Request) (*browser.Store, error) { return s, nil },
	}
	r := chi.NewRouter()
	srv.mountCommon(r)
	srv.mountStore(r)
	return enableCORS(r)
}

func (s *Server) mountCommon(r chi.Router) {
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.gatherer, promhttp.HandlerOpts{}))
}

func (s *Server) mountStore(r chi.Router) {
	r.Get("/state", s.GetState)
	r.Get("/tabs", s.ListTabs)
	r.Get("/tabs/{tab}", s.GetTab)
	r.Post("/actions", s.PostAction)
	r.Get("/events", s.SubscribeEvents)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	Revision uint64              `json:"revision"`
	State    domain.BrowserState `json:"state"`
}

// DispatchResponse is the body of POST /actions.
type DispatchResponse struct {
	Kind string `json:"kind"`
	// State is set when the request asked to wait for the action to be reduced.
	State *StateResponse `json:"state,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tabstate",
		"version": s.cfg.version,
	})
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state, rev := st.Snapshot()
	s.writeJSON(w, http.StatusOK, StateResponse{Revision: rev, State: state})
}

// ListTabs handles GET /tabs. The optional private query parameter filters
// private or normal tabs.
func (s *Server) ListTabs(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state := st.State()
	tabs := state.Tabs
	if p := r.URL.Query().Get("private"); p != "" {
		private, err := strconv.ParseBool(p)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid private filter")
			return
		}
		if private {
			tabs = state.PrivateTabs()
		} else {
			tabs = state.NormalTabs()
		}
	}
	if tabs == nil {
		tabs = []domain.TabSessionState{}
	}
	s.writeJSON(w, http.StatusOK, tabs)
}

// GetTab handles GET /tabs/{tab}.
func (s *Server) GetTab(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	tab, found := st.State().FindTab(chi.URLParam(r, "tab"))
	if !found {
		s.writeError(w, http.StatusNotFound, domain.ErrTabNotFound.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, tab)
}

// PostAction handles POST /actions. The body is a codec envelope. With ?wait=true
// the response is sent once the action has been reduced and carries the state.
func (s *Server) PostAction(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	var env codec.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.cfg.logger.Warn("PostAction: invalid request body", "err", err)
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := s.cfg.codec.Decode(env.Kind, env.Payload)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, codec.ErrInvalidPayload) {
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, status, err.Error())
		return
	}

	st.Dispatch(action)
	s.cfg.logger.Debug("PostAction: dispatched", "action", action.Kind())

	resp := DispatchResponse{Kind: action.Kind()}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		s.writeJSON(w, http.StatusAccepted, resp)
		return
	}
	if err := st.Flush(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	state, rev := st.Snapshot()
	resp.State = &StateResponse{Revision: rev, State: state}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) (*browser.Store, bool) {
	st, err := s.resolve(r)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return st, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.cfg.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
