package server

import (
	"context"
	"fmt"
	"net/http"

	"EnergyMonitorAPI/internal/config"
	"EnergyMonitorAPI/internal/handler"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/middleware"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

// Handlers groups everything the router serves.
type Handlers struct {
	Ingest    *handler.IngestHandler
	Reading   *handler.ReadingHandler
	Alert     *handler.AlertHandler
	Threshold *handler.ThresholdHandler
	Device    *handler.DeviceHandler
	Billing   *handler.BillingHandler
	Overview  *handler.OverviewHandler
	Health    *handler.HealthHandler
	Live      http.Handler
	Metrics   http.Handler
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	return server
}

// RegisterHandlers mounts the API under /api/v1. Device ingestion has its own
// per-device limiter inside the pipeline, so the per-client limiter only
// guards the query and admin routes.
func (s *Server) RegisterHandlers(h Handlers, clientLimiter middleware.Admitter) {
	s.router.Use(middleware.Recovery(s.log))

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequestLogger(s.log))
	api.Use(middleware.CORS(s.cfg.Security.CORSAllowedOrigins, s.cfg.Security.CORSAllowedMethods))

	ingest := api.NewRoute().Subrouter()
	h.Ingest.RegisterRoutes(ingest)

	query := api.NewRoute().Subrouter()
	if s.cfg.Security.EnableRateLimit && clientLimiter != nil {
		query.Use(middleware.RateLimit(clientLimiter))
	}

	h.Reading.RegisterRoutes(query)
	h.Alert.RegisterRoutes(query)
	h.Threshold.RegisterRoutes(query)
	h.Device.RegisterRoutes(query)
	h.Billing.RegisterRoutes(query)
	h.Overview.RegisterRoutes(query)

	// Preflight requests match no method-restricted route.
	api.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	h.Health.RegisterRoutes(s.router)
	if h.Live != nil {
		s.router.Handle("/ws", h.Live).Methods("GET")
	}
	if h.Metrics != nil {
		s.router.Handle("/metrics", h.Metrics).Methods("GET")
	}

	s.log.Info("All handlers registered")
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
