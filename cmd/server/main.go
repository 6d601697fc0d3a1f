// Package main provides the entry point for the platform service HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/researchhub/platform-service/internal/config"
	"github.com/researchhub/platform-service/internal/database"
	"github.com/researchhub/platform-service/internal/feed"
	"github.com/researchhub/platform-service/internal/observability"
	"github.com/researchhub/platform-service/internal/outbox"
	"github.com/researchhub/platform-service/internal/reputation"
	"github.com/researchhub/platform-service/internal/repository"
	httpserver "github.com/researchhub/platform-service/internal/server/http"
	"github.com/researchhub/platform-service/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("platform-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("platform_service")
	}

	// Create repositories.
	entryRepo := repository.NewPgFeedEntryRepository(db)
	hubRepo := repository.NewPgHubRepository(db)
	reputationRepo := repository.NewPgReputationRepository(db)
	outboxRepo := repository.NewPgOutboxRepository(db)

	// Create services.
	emitter := outbox.NewEmitter("platform-service")
	feedSvc := service.NewFeedService(
		db,
		entryRepo,
		hubRepo,
		outboxRepo,
		feed.NewHotScorer(cfg.Feed.HotScore),
		feed.NewFundScorer(cfg.Feed.FundScore),
		cfg.Feed.Diversify,
		service.FeedPagination{
			DefaultPageSize: cfg.Feed.DefaultPageSize,
			MaxPageSize:     cfg.Feed.MaxPageSize,
		},
		emitter,
		logger,
		metrics,
	)
	reputationSvc := service.NewReputationService(
		db,
		reputationRepo,
		reputation.NewCalculator(cfg.Reputation),
		emitter,
		logger,
		metrics,
	)

	// Create the outbox publisher. Without Kafka the noop publisher logs
	// and acknowledges events so the outbox table still drains.
	var publisher outbox.Publisher
	if cfg.Kafka.Enabled {
		publisher = outbox.NewKafkaPublisher(cfg.Kafka)
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("kafka publisher created")
	} else {
		publisher = outbox.NewNoopPublisher(logger)
		logger.Warn().Msg("kafka disabled; outbox events will be logged and dropped")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close outbox publisher")
		}
	}()

	processor := outbox.NewProcessor(outboxRepo, publisher, cfg.Outbox, logger, metrics)

	// Create JWT auth middleware. Nil when auth is disabled.
	authMiddleware := httpserver.NewAuthMiddleware(cfg.Auth)
	if authMiddleware == nil {
		logger.Warn().Msg("authentication disabled")
	}

	httpSrv := httpserver.NewServer(
		httpserver.Config{
			Address:         cfg.Server.HTTPAddress(),
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		feedSvc,
		reputationSvc,
		db,
		logger,
		metrics,
		authMiddleware,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 3)

	// Start the outbox processor in background.
	go func() {
		if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("outbox processor error: %w", err)
		}
	}()

	// Start HTTP REST API server in background.
	go func() {
		logger.Info().
			Str("address", cfg.Server.HTTPAddress()).
			Msg("HTTP server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", cfg.Server.HTTPAddress())
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("platform-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down platform-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("platform-service shutdown complete")
	return nil
}
