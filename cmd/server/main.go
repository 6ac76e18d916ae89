// Package main is the entry point for the blood supply forecasting service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/api"
	"github.com/IrrisMag/HealthTech-sub000/internal/config"
	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
	"github.com/IrrisMag/HealthTech-sub000/internal/monitoring"
	"github.com/IrrisMag/HealthTech-sub000/internal/optimize"
	"github.com/IrrisMag/HealthTech-sub000/internal/registry"
	"github.com/IrrisMag/HealthTech-sub000/internal/service"
	"github.com/IrrisMag/HealthTech-sub000/pkg/dataservice"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	// Model registry; a failed initial load is survivable because every
	// blood type falls back to a synthetic model.
	models := registry.NewRegistry(cfg.Models, logger)
	if cfg.Models.ReloadOnStart {
		summary, err := models.Reload(context.Background())
		if err != nil {
			logger.WithError(err).Warn("Initial model load failed, serving synthetic models")
		} else {
			logger.WithFields(logrus.Fields{
				"loaded":    summary.Loaded,
				"synthetic": summary.Synthetic,
				"version":   summary.Version,
			}).Info("Model registry loaded")
		}
	}

	// Upstream Data Service client with its Redis-backed record cache
	clinicalCache := dataservice.NewCache(cfg.Cache, logger)
	dataClient := dataservice.NewClient(cfg.DataService, clinicalCache, logger)

	// Forecast result cache (memory tier plus optional Redis tier)
	forecastCache, err := service.NewForecastCache(cfg.Cache, logger)
	if err != nil {
		log.Fatalf("Failed to initialize forecast cache: %v", err)
	}

	forecaster := service.NewForecastingService(models, forecastCache, cfg.Forecast, logger)
	analyzer := service.NewClinicalAnalysisService(dataClient, cfg.Clinical, logger)
	integrator := service.NewIntegrationService(forecaster, analyzer, dataClient, cfg.Ensemble,
		cfg.Optimization.DefaultLeadTimeDays, logger)
	optimizer := optimize.NewEngine(integrator, dataClient, cfg.Optimization, logger)
	stats := monitoring.NewCollector(logger)

	handlers := api.NewHandlers(api.Dependencies{
		Config:     configManager,
		Models:     models,
		Forecaster: forecaster,
		Analyzer:   analyzer,
		Integrator: integrator,
		Optimizer:  optimizer,
		DataClient: dataClient,
		Cache:      clinicalCache,
		Stats:      stats,
		Logger:     logger,
	})
	server := api.NewServer(configManager, handlers, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	if clinicalCache != nil {
		if err := clinicalCache.Close(); err != nil {
			logger.WithError(err).Warn("Closing clinical cache failed")
		}
	}
	logger.Info("Server stopped")
}

// newLogger builds the service logger from the logging configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	switch cfg.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "file":
		file, err := os.OpenFile(cfg.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Cannot open log file, falling back to stdout")
		} else {
			logger.SetOutput(file)
		}
	default:
		logger.SetOutput(os.Stdout)
	}

	return logger
}
