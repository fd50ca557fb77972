package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"likesync/internal/config"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(cfg config.HTTPConfig, handlers *Handlers, sessions SessionResolver, logger *slog.Logger) *Server {
	logger = logger.With("component", "api")

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Addr,
			Handler: NewRouter(cfg, handlers, sessions, logger),
		},
		logger: logger,
	}
}

func NewRouter(cfg config.HTTPConfig, handlers *Handlers, sessions SessionResolver, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(sessions, logger))

		r.Post("/summarize", handlers.Summarize)
		r.Get("/usage", handlers.Usage)

		r.Route("/collection", func(r chi.Router) {
			r.Get("/", handlers.View)
			r.Post("/sync", handlers.SyncFirstPage)
			r.Post("/next", handlers.SyncNextPage)
			r.Post("/drain", handlers.Drain)
			r.Post("/remove", handlers.RemoveItems)
			r.Delete("/items/{id}", handlers.RemoveItem)
		})

		r.Post("/session/signout", handlers.SignOut)
	})

	return r
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
