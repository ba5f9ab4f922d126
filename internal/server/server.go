// Package server exposes a small read-only HTTP surface next to the host
// adapter: Prometheus metrics, a health probe and the tracked workspaces.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/peterM/HangFixer/internal/logging"
	"github.com/peterM/HangFixer/internal/phase"
)

// Snapshotter lists tracked workspaces. *phase.Sequencer implements it.
type Snapshotter interface {
	Snapshot() []phase.WorkspaceStatus
}

// Server is the HTTP endpoint.
type Server struct {
	srv       *http.Server
	router    *mux.Router
	snapshots Snapshotter
	logger    *logging.Logger
}

// New builds the router. metrics may be nil to omit /metrics.
func New(addr string, snapshots Snapshotter, metrics http.Handler, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Server{
		router:    mux.NewRouter(),
		snapshots: snapshots,
		logger:    logger,
	}

	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/workspaces", s.handleWorkspaces).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http server shutdown", "error", err.Error())
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleWorkspaces lists tracked workspaces; ?path= narrows to one.
func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	all := s.snapshots.Snapshot()

	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusOK, all)
		return
	}

	want := filepath.Clean(path)
	for _, ws := range all {
		if ws.WorkspaceID == want {
			writeJSON(w, http.StatusOK, ws)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "workspace not tracked"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
