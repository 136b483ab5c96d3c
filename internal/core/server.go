// Package core provides the API chassis for the floodwatch platform: a chi
// router with the cross-cutting concerns (recovery, request IDs, logging,
// CORS, timeouts) applied before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/config"
)

// RouteRegistrar mounts one domain handler group onto the v1 router. The
// entry point populates these; the indirection keeps core free of handler
// imports.
type RouteRegistrar func(r chi.Router)

// Server holds the chassis dependencies and the router.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// V1RouteRegistrars is populated by the application entry point before
	// MountRoutes.
	V1RouteRegistrars []RouteRegistrar

	// Health probes, checked by the health endpoint.
	Pingers []NamedPinger

	router *chi.Mux
}

// Pinger is a dependency that can report its own liveness. *pgxpool.Pool
// satisfies it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NamedPinger pairs a probe with the component name it reports as.
type NamedPinger struct {
	Name   string
	Pinger Pinger
}

// NewServer initializes the chassis. It fails fast on missing dependencies;
// the caller mounts routes after construction.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for tests and route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}
