package core

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes defines the top-level routing hierarchy: the global middleware
// chain, the /api group, and the health check.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	s.router.Route("/api", s.mountAPI)

	s.router.Get("/health", s.HandleHealth)
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering rationale:
//  1. Recoverer      - catches panics; outermost to catch all failures.
//  2. ContextTimeout - sets a soft deadline before the server write timeout.
//  3. RequestID      - generates/propagates the correlation ID for tracing.
//  4. RequestLogger  - structured request logging.
//  5. CORS           - browser security headers and preflight handling.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(defaultRequestTimeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
}

// mountAPI registers all /api endpoints. Domain handler routes are registered
// via V1RouteRegistrars, populated by the application entry point. The
// indirection avoids import cycles between core and handler packages.
func (s *Server) mountAPI(r chi.Router) {
	for _, registrar := range s.V1RouteRegistrars {
		registrar(r)
	}
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Server.CorsAllowedOrigins) > 0 {
		return s.Config.Server.CorsAllowedOrigins
	}
	return []string{"*"}
}
