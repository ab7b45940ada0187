package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/store"
)

// latest keeps only the newest state handed over by the store. The stream writer
// diffs against what it sent last, so skipped intermediate states are folded into
// the next diff instead of being lost.
type latest struct {
	mu    sync.Mutex
	state domain.BrowserState
	ready chan struct{}
}

func newLatest() *latest {
	return &latest{ready: make(chan struct{}, 1)}
}

func (l *latest) set(state domain.BrowserState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latest) get() domain.BrowserState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// watchFilter selects which diffs reach a client. An empty filter passes all.
type watchFilter map[string]bool

func parseWatch(raw string) watchFilter {
	if raw == "" {
		return nil
	}
	f := watchFilter{}
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			f[field] = true
		}
	}
	return f
}

func (f watchFilter) match(diff *domain.StateDiff) bool {
	if len(f) == 0 {
		return true
	}
	if f["selection"] && diff.SelectedTabID != nil {
		return true
	}
	if f["tabs"] && (len(diff.Added) > 0 || len(diff.Updated) > 0 || len(diff.Removed) > 0 || len(diff.Order) > 0) {
		return true
	}
	return false
}

// SubscribeEvents handles GET /events. The first data event carries the whole
// state as a diff from nothing; each later one carries a domain.StateDiff. The
// optional watch parameter (tabs, selection) limits the events sent.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.cfg.logger.Error("SubscribeEvents: streaming not supported")
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	watch := parseWatch(r.URL.Query().Get("watch"))
	updates := newLatest()
	sub := store.BindContext(r.Context(), st.ObserveWith(updates.set))
	defer sub.Unsubscribe()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.cfg.logger.Debug("SSE: client subscribed", "remote", r.RemoteAddr)

	var last *domain.BrowserState
	for {
		select {
		case <-r.Context().Done():
			s.cfg.logger.Debug("SSE: client disconnected", "remote", r.RemoteAddr)
			return
		case <-st.Done():
			return
		case <-updates.ready:
			state := updates.get()
			diff := domain.Diff(last, state)
			last = &state
			if diff == nil || !watch.match(diff) {
				continue
			}
			data, err := json.Marshal(diff)
			if err != nil {
				s.cfg.logger.Error("SSE: diff encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
