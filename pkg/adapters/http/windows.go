package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/tabstate/pkg/browser"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/session"
	"github.com/go-chi/chi/v5"
)

// NewManagerHandler serves the windows of m. Every store route is available under
// /windows/{window}. PUT opens a window on behalf of the server and DELETE
// releases that reference.
func NewManagerHandler(m *session.Manager, opts ...Option) http.Handler {
	srv := &Server{
		cfg: newConfig(opts),
		resolve: func(r *http.Request) (*browser.Store, error) {
			id := chi.URLParam(r, "window")
			w, ok := m.Get(id)
			if !ok {
				return nil, fmt.Errorf("window %s: %w", id, session.ErrWindowNotOpen)
			}
			return w.Store(), nil
		},
	}

	r := chi.NewRouter()
	srv.mountCommon(r)
	r.Get("/windows", func(w http.ResponseWriter, r *http.Request) {
		srv.writeJSON(w, http.StatusOK, m.List())
	})
	r.Route("/windows/{window}", func(r chi.Router) {
		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "window")
			if _, err := m.Open(r.Context(), id); err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, domain.ErrWindowLocked) {
					status = http.StatusConflict
				}
				srv.writeError(w, status, err.Error())
				return
			}
			srv.writeJSON(w, http.StatusOK, map[string]string{"window": id})
		})
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			if err := m.Release(r.Context(), chi.URLParam(r, "window")); err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, session.ErrWindowNotOpen) {
					status = http.StatusNotFound
				}
				srv.writeError(w, status, err.Error())
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		srv.mountStore(r)
	})
	return enableCORS(r)
}
