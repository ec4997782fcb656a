// AngelaMos | 2026
// server.go

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
)

// Drainable is told when the process stops taking traffic so readiness
// probes can fail before the listener closes.
type Drainable interface {
	SetReady(ready bool)
	SetShutdown(shutdown bool)
}

type Config struct {
	ServerConfig  config.ServerConfig
	HealthHandler Drainable
	Logger        *slog.Logger
}

type Server struct {
	http   *http.Server
	router *chi.Mux
	health Drainable
	logger *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		core.NotFound(w, "route")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		core.JSONError(w, core.NewAppError(
			nil,
			"method not allowed",
			http.StatusMethodNotAllowed,
			"METHOD_NOT_ALLOWED",
		))
	})

	return &Server{
		http: &http.Server{
			Addr:              cfg.ServerConfig.Address(),
			Handler:           router,
			ReadTimeout:       cfg.ServerConfig.ReadTimeout,
			ReadHeaderTimeout: cfg.ServerConfig.ReadTimeout,
			WriteTimeout:      cfg.ServerConfig.WriteTimeout,
			IdleTimeout:       cfg.ServerConfig.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		router: router,
		health: cfg.HealthHandler,
		logger: logger,
	}
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) Addr() string {
	return s.http.Addr
}

// Start blocks until the listener fails or Shutdown is called. A clean
// shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown marks the service unready, waits drainDelay for load balancers
// to notice, then stops accepting connections and waits for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context, drainDelay time.Duration) error {
	if s.health != nil {
		s.health.SetReady(false)
		s.health.SetShutdown(true)
	}

	if drainDelay > 0 {
		s.logger.Info("draining connections", "delay", drainDelay.String())

		select {
		case <-time.After(drainDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
