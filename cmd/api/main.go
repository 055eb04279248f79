package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/llmwatch/llmwatch/internal/api/handlers"
	"github.com/llmwatch/llmwatch/internal/api/router"
	"github.com/llmwatch/llmwatch/internal/collector"
	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/events"
	"github.com/llmwatch/llmwatch/internal/integrations"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/validator"
	"github.com/llmwatch/llmwatch/internal/providers"
	"github.com/llmwatch/llmwatch/internal/repository/postgres"
	"github.com/llmwatch/llmwatch/internal/rules"
	"github.com/llmwatch/llmwatch/internal/services"
	"github.com/llmwatch/llmwatch/internal/worker"
)

// @title LLMWatch API
// @version 1.0
// @description Anomaly detection and observability gateway for LLM traffic
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	appLogger.WithFields(map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"provider":    cfg.LLM.Provider,
	}).Info("Starting llmwatch")

	store, err := postgres.New(cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open database")
	}
	defer store.Close()

	anomalyRepo := postgres.NewAnomalyRepository(store)
	incidentRepo := postgres.NewIncidentRepository(store)
	baselineRepo := postgres.NewBaselineRepository(store)
	interactionRepo := postgres.NewInteractionRepository(store)

	registry := detector.NewRegistry(buildDetectorConfig(cfg, appLogger))
	hub := events.NewHub(appLogger)

	provider, err := providers.New(cfg.LLM)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to configure LLM provider")
	}
	if cfg.Redis.Enabled {
		cached, err := providers.NewCache(provider, cfg.Redis, appLogger)
		if err != nil {
			appLogger.WithError(err).Warn("Response cache unavailable, continuing without it")
		} else {
			provider = cached
		}
	}

	coll := collector.New(cfg.LLM.CostInputPer1K, cfg.LLM.CostOutputPer1K, cfg.LLM.ContextWindow)

	var slack *integrations.SlackClient
	if cfg.Incident.SlackWebhookURL != "" {
		slack = integrations.NewSlackClient(cfg.Incident.SlackWebhookURL, cfg.Incident.SlackChannel)
	}

	rootCause := services.NewRootCauseService(provider, appLogger)
	telemetry := services.NewTelemetryService(cfg.Telemetry, appLogger)
	incidentSvc := services.NewIncidentService(incidentRepo, rootCause, registry, slack, hub, cfg.Incident, appLogger)
	detectionSvc := services.NewDetectionService(registry, anomalyRepo, incidentSvc, telemetry, hub, appLogger)
	chatSvc := services.NewChatService(provider, coll, detectionSvc, interactionRepo, cfg.LLM.RequestTimeout, appLogger)
	baselineSvc := services.NewBaselineService(registry, baselineRepo, appLogger)
	jobSvc := services.NewJobService(baselineSvc, anomalyRepo, interactionRepo, baselineRepo, cfg.Snapshot, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Snapshot.RestoreOnStart {
		restored, err := baselineSvc.RestoreLatest(ctx)
		if err != nil {
			appLogger.WithError(err).Warn("Baseline restore failed, starting cold")
		} else if restored {
			appLogger.Info("Baselines restored from latest snapshot")
		}
	}

	if err := jobSvc.Start(); err != nil {
		appLogger.WithError(err).Fatal("Failed to start scheduled jobs")
	}
	defer jobSvc.Stop()

	flusher := worker.NewTelemetryFlusher(telemetry, cfg.Telemetry.FlushInterval, appLogger)
	go flusher.Start(ctx)

	val := validator.New()
	h := &router.Handlers{
		Health:   handlers.NewHealthHandler(store.DB, appLogger),
		Chat:     handlers.NewChatHandler(chatSvc, appLogger, val),
		Anomaly:  handlers.NewAnomalyHandler(detectionSvc, appLogger, val),
		Incident: handlers.NewIncidentHandler(incidentSvc, appLogger),
		Summary:  handlers.NewSummaryHandler(detectionSvc, chatSvc, appLogger),
		Baseline: handlers.NewBaselineHandler(baselineSvc, appLogger, val),
		Events:   handlers.NewEventsHandler(hub, appLogger),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, appLogger, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		appLogger.WithError(err).Fatal("HTTP server failed")
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	appLogger.Info("Server stopped")
}

// buildDetectorConfig maps environment settings onto the detector and
// layers the optional HCL rules file on top.
func buildDetectorConfig(cfg *config.Config, log *logger.Logger) detector.Config {
	detCfg := detector.DefaultConfig()
	if cfg.Detector.WindowSize > 0 {
		detCfg.WindowSize = cfg.Detector.WindowSize
	}
	if cfg.Detector.MinPoints > 0 {
		detCfg.MinPoints = cfg.Detector.MinPoints
	}
	if cfg.Detector.ZThreshold > 0 {
		detCfg.ZThreshold = cfg.Detector.ZThreshold
	}
	if cfg.Detector.EWMAAlpha > 0 {
		detCfg.EWMAAlpha = cfg.Detector.EWMAAlpha
	}
	if cfg.Detector.RecentLimit > 0 {
		detCfg.RecentLimit = cfg.Detector.RecentLimit
	}
	if cfg.Detector.Sev1ZScore > 0 {
		detCfg.Sev1ZScore = cfg.Detector.Sev1ZScore
	}
	if cfg.Detector.Sev2ZScore > 0 {
		detCfg.Sev2ZScore = cfg.Detector.Sev2ZScore
	}

	if cfg.Detector.RulesFile != "" {
		loaded, err := rules.Load(cfg.Detector.RulesFile, detCfg)
		if err != nil {
			log.WithError(err).Fatal("Failed to load detector rules file")
		}
		detCfg = loaded
		log.WithFields(map[string]interface{}{
			"file":     cfg.Detector.RulesFile,
			"patterns": len(detCfg.Rules),
		}).Info("Detector rules loaded")
	}

	return detCfg
}
