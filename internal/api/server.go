// Package api provides the HTTP API server and handlers for the moderation lists.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/qkfdcom/lcqk/internal/ratelimit"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	// LoginRateLimit is the number of login attempts allowed per minute per client IP.
	LoginRateLimit int
	// DataDir is checked by the health endpoint.
	DataDir string
	State   Pinger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services     *Services
	opts         Options
	router       chi.Router
	api          huma.API
	loginLimiter *ratelimit.KeyedRateLimiter
	logger       *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.LoginRateLimit <= 0 {
		opts.LoginRateLimit = 10
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("LCQK Moderation API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		services:     services,
		opts:         opts,
		router:       router,
		api:          api,
		loginLimiter: ratelimit.New(ratelimit.PerMinute(opts.LoginRateLimit), opts.LoginRateLimit),
		logger:       logger,
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerTransferRoutes()
	s.registerSyncRoutes()
	s.registerIdentifierRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources.
func (s *Server) Close() {
	s.loginLimiter.Stop()
}

// HTTPServer builds the listening server with the configured timeouts.
func (s *Server) HTTPServer(addr string, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
}
