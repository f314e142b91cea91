package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/pickaudit/config"
	"example.com/backstage/services/pickaudit/internal/api/handlers"
	"example.com/backstage/services/pickaudit/internal/metrics"
	"example.com/backstage/services/pickaudit/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config     config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	analyses   handlers.AnalysisService
	datasets   handlers.DatasetService
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	analyses handlers.AnalysisService,
	datasets handlers.DatasetService,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:   cfg,
		analyses: analyses,
		datasets: datasets,
		metrics:  m,
		tracer:   tracer,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:        cfg.Address,
		Handler:     server.router,
		ReadTimeout: cfg.Timeout,
	}

	return server
}

// Router exposes the engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	if app := s.tracer.Application(); app != nil {
		router.Use(nrgin.Middleware(app))
	}
	router.Use(RequestIDMiddleware())
	if s.config.CorsEnabled {
		router.Use(CORSMiddleware(s.config.CorsOrigins))
	}
	router.Use(LoggingMiddleware(s.metrics))

	handlers.NewMetricsHandler(s.metrics, s.tracer).RegisterRoutes(router)

	v1 := router.Group("/api/v1")
	handlers.NewDatasetHandler(s.datasets, s.tracer, s.config.MaxUploadSize).RegisterRoutes(v1)
	handlers.NewAnalysisHandler(s.analyses, s.tracer).RegisterRoutes(v1)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
