// Package server provides the HTTP server for live tracking state, controls
// and session history.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/trailcam/internal/metric"
	"github.com/ayusman/trailcam/internal/server/api"
	"github.com/ayusman/trailcam/internal/store"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds how long Run waits for open requests on exit.
const ShutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Pipeline  api.Pipeline
	Classes   []string
	Store     *store.Store
	Metric    *metric.Metric
	Logger    *zap.SugaredLogger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	log    *zap.SugaredLogger
	mux    *http.ServeMux
	start  time.Time
	feed   *TrackFeed
}

// New creates a new Server with the given configuration. Routes whose
// dependency is missing from config are not registered.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}

	s := &Server{
		config: config,
		log:    config.Logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if p := s.config.Pipeline; p != nil {
		controls := api.NewControlHandler(p)
		s.mux.Handle("/api/tracks", api.NewTrackHandler(p, s.config.Classes))
		s.mux.Handle("/api/trails", controls)
		s.mux.Handle("/api/controls/", controls)
		s.mux.Handle("/api/stream", NewStreamHandler(p))

		s.feed = NewTrackFeed(p, s.config.Classes, s.log)
		s.mux.Handle("/api/ws", s.feed)
	}

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Metric != nil {
		s.mux.Handle("/metrics", s.config.Metric.Handler())
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Pipeline != nil {
		snap := s.config.Pipeline.Snapshot()
		response["frame"] = snap.Frame
		response["paused"] = snap.Paused
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Close stops background work started by the server.
func (s *Server) Close() {
	if s.feed != nil {
		s.feed.Close()
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
