package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr string
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates the HTTP server exposing the release API to the UI
// layer.
func NewServer(
	ctx context.Context,
	store interfaces.ReleaseStore,
	syncUC interfaces.SyncUseCase,
	versionUC interfaces.VersionUseCase,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	handler := NewReleaseHandler(store, syncUC, versionUC)
	router.Route("/api", func(r chi.Router) {
		r.Get("/releases", handler.List)
		r.Get("/releases/{demandID}", handler.Get)
		r.Put("/releases/{demandID}", handler.Put)
		r.Delete("/releases/{demandID}", handler.Delete)
		r.Post("/releases/{demandID}/version", handler.Version)
		r.Post("/sync", handler.Sync)
	})

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
