// Package api serves the HTTP introspection surface: camera listings,
// static characteristics, request templates, dumps, and recent logs.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/camhal/camhal/internal/hal"
	"github.com/camhal/camhal/internal/logging"
	"github.com/camhal/camhal/internal/version"
)

// Options configure the API server.
type Options struct {
	Port           string
	MetricsHandler http.Handler
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	manager    *hal.Manager
	logger     *slog.Logger
}

// NewServer wires the API over a camera manager.
func NewServer(manager *hal.Manager, opts Options) *Server {
	mux := http.NewServeMux()
	config := huma.DefaultConfig("camhal", version.String())
	config.Info.Description = "Camera HAL introspection API"

	s := &Server{
		api:     humago.New(mux, config),
		mux:     mux,
		manager: manager,
		logger:  logging.GetLogger("api"),
	}
	s.registerRoutes()

	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}

	s.httpServer = &http.Server{
		Addr:              opts.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
