// Package httpapi mounts the capture session's admin and live-tail HTTP
// surface: a Server-Sent-Events feed of decoded packets, the on-demand
// HTML report, and (when a store is configured) a read-only SQL
// browser, all wrapped in tsweb.Debugger so they are reachable only over
// loopback/Tailscale.
package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/tlindal/nasasniff/internal/httputil"
	"github.com/tlindal/nasasniff/internal/monitoring"
	"github.com/tlindal/nasasniff/internal/nasa/analyser"
	"github.com/tlindal/nasasniff/internal/nasa/session"
	"github.com/tlindal/nasasniff/internal/report"
)

// SQLBrowserMounter is implemented by internal/store.Store; kept as an
// interface here so httpapi does not import store directly (store is an
// optional component of a capture session).
type SQLBrowserMounter interface {
	AttachAdminRoutes(mux *http.ServeMux) error
}

// Server wires a live session and an analyser onto an *http.ServeMux.
type Server struct {
	session  *session.Session
	analyser *analyser.Analyser
	store    SQLBrowserMounter
}

// New creates a Server. store may be nil if no SQLite capture store is
// configured for this session.
func New(sess *session.Session, an *analyser.Analyser, store SQLBrowserMounter) *Server {
	return &Server{session: sess, analyser: an, store: store}
}

// AttachRoutes mounts every admin/live route onto mux under tsweb's
// debug-route wrapper, mirroring the teacher's admin-route convention.
func (s *Server) AttachRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	debug.HandleSilentFunc("live/tail", s.handleLiveTail)
	debug.HandleFunc("report", "HTML report of observed packet groups", s.handleReport)
	debug.HandleFunc("stats", "JSON summary of total/unique-group counts", s.handleStats)

	if s.store != nil {
		if err := s.store.AttachAdminRoutes(mux); err != nil {
			return fmt.Errorf("httpapi: attach store admin routes: %w", err)
		}
	}

	return nil
}

// handleLiveTail streams session events as Server-Sent-Events. Each
// event is one JSON-encoded wireEvent line (§6.4's init/packet/error
// envelope, long field names).
func (s *Server) handleLiveTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, ch, err := s.session.Subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.session.Unsubscribe(id)

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(toWireEvent(ev))
			if err != nil {
				monitoring.Logf("httpapi: marshal live event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleReport renders the on-demand HTML group report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	groups := s.analyser.Report()

	var buf bytes.Buffer
	if err := report.Render(&buf, groups, time.Now()); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render report: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleStats returns the analyser's aggregate totals as JSON.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.analyser.Stats())
}
