// Package api exposes the forecasting, clinical analysis and inventory
// optimization services over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
	"github.com/IrrisMag/HealthTech-sub000/internal/middleware"
	"github.com/IrrisMag/HealthTech-sub000/internal/monitoring"
)

// Server hosts the REST API.
type Server struct {
	configManager domain.ConfigManager
	handlers      *Handlers
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer builds the router and middleware chain around the handlers.
func NewServer(configManager domain.ConfigManager, handlers *Handlers, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		configManager: configManager,
		handlers:      handlers,
		logger:        logger,
		router:        gin.New(),
	}

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(logger))
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS())
	if cfg.Server.WriteTimeout > 0 {
		s.router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))
	}
	if handlers.stats != nil {
		s.router.Use(trackInFlight(handlers.stats))
	}

	s.setupRoutes()

	return s
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/forecast", s.handlers.Forecast)
		v1.POST("/forecast/batch", s.handlers.BatchForecast)
		v1.GET("/forecast/clinical", s.handlers.ClinicalForecast)
		v1.POST("/clinical/analyze", s.handlers.AnalyzeClinicalData)
		v1.POST("/optimize", s.handlers.Optimize)
		v1.GET("/models", s.handlers.ListModels)
		v1.POST("/models/reload", s.handlers.ReloadModels)
		v1.GET("/stats", s.handlers.Stats)
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully with a 30 second drain window.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetConfig()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr": s.server.Addr,
			"tls":  cfg.Server.TLSEnabled,
		}).Info("Starting HTTP server")

		var err error
		if cfg.Server.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// trackInFlight keeps the active request gauge current.
func trackInFlight(stats *monitoring.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats.RequestStarted()
		defer stats.RequestFinished()
		c.Next()
	}
}
