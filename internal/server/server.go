// internal/server/server.go

package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"freedomwall/internal/config"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
	"freedomwall/internal/monitoring"
	"freedomwall/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	wallService message.Service,
	subscriber message.Subscriber,
	health *monitoring.HealthChecker,
	metrics *monitoring.MetricsCollector,
	logger logging.Logger,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{handlers.DegradedHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create handler dependencies
	messageHandler := handlers.NewMessageHandler(wallService, logger, cfg.Wall.StrictNearby)
	healthHandler := handlers.NewHealthHandler(health.Handler())
	liveHandler := handlers.NewLiveHandler(
		subscriber,
		logger,
		metrics,
		handlers.DefaultWebSocketConfig(),
		cfg.Wall.LiveDefaultRadius,
	)

	messageRoutes := func(r chi.Router) {
		r.Get("/", messageHandler.ListNearby)
		r.Post("/", messageHandler.CreateMessage)
	}

	// Routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

		r.Get("/health", healthHandler.Live)
		r.Get("/health/ready", healthHandler.Ready)
		r.Handle("/metrics", metrics.Handler())

		r.Route("/messages", messageRoutes)
		r.Route("/api/messages", messageRoutes)
	})

	// WebSocket endpoint for the live feed
	router.Get("/ws/messages", liveHandler.ServeHTTP)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
