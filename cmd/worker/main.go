// Package main provides the entry point for the platform service Temporal worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/researchhub/platform-service/internal/config"
	"github.com/researchhub/platform-service/internal/contributions"
	"github.com/researchhub/platform-service/internal/database"
	"github.com/researchhub/platform-service/internal/feed"
	"github.com/researchhub/platform-service/internal/observability"
	"github.com/researchhub/platform-service/internal/openalex"
	"github.com/researchhub/platform-service/internal/outbox"
	"github.com/researchhub/platform-service/internal/reputation"
	"github.com/researchhub/platform-service/internal/repository"
	"github.com/researchhub/platform-service/internal/service"
	"github.com/researchhub/platform-service/internal/temporal"
	"github.com/researchhub/platform-service/internal/temporal/activities"
	"github.com/researchhub/platform-service/internal/temporal/workflows"
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
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("platform-service worker starting")

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

	// Create metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("platform_service")
	}

	// Create repositories and the feed service the activities call into.
	entryRepo := repository.NewPgFeedEntryRepository(db)
	hubRepo := repository.NewPgHubRepository(db)
	outboxRepo := repository.NewPgOutboxRepository(db)

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

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	// Create WorkerManager.
	manager, err := temporal.NewWorkerManager(temporalClient, temporal.WorkerConfig{
		TaskQueue: cfg.Temporal.TaskQueue,
	})
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	// Register the score refresh pipeline.
	manager.RegisterWorkflow(workflows.ScoreRefreshWorkflow)
	manager.RegisterActivity(activities.NewScoreActivities(feedSvc))

	// Register citation enrichment when OpenAlex is configured.
	if cfg.OpenAlex.Enabled {
		openalexClient := openalex.New(openalex.Config{
			BaseURL:   cfg.OpenAlex.BaseURL,
			Mailto:    cfg.OpenAlex.Mailto,
			APIKey:    cfg.OpenAlex.APIKey,
			Timeout:   cfg.OpenAlex.Timeout,
			RateLimit: cfg.OpenAlex.RateLimit,
		}, metrics)
		manager.RegisterWorkflow(workflows.EnrichEntriesWorkflow)
		manager.RegisterActivity(activities.NewEnrichmentActivities(feedSvc, openalexClient))
		logger.Info().Str("base_url", cfg.OpenAlex.BaseURL).Msg("openalex enrichment registered")
	} else {
		logger.Info().Msg("openalex disabled; citation enrichment unavailable")
	}

	// Consume contribution events when Kafka is configured.
	if cfg.Kafka.Enabled {
		reputationRepo := repository.NewPgReputationRepository(db)
		reputationSvc := service.NewReputationService(
			db,
			reputationRepo,
			reputation.NewCalculator(cfg.Reputation),
			emitter,
			logger,
			metrics,
		)
		listener := contributions.NewListener(contributions.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.ContributionsTopic,
			GroupID: cfg.Kafka.ConsumerGroup,
		}, reputationSvc, logger)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close contribution listener")
			}
		}()
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("contribution listener stopped")
			}
		}()
		logger.Info().
			Str("topic", cfg.Kafka.ContributionsTopic).
			Str("group_id", cfg.Kafka.ConsumerGroup).
			Msg("contribution listener started")
	} else {
		logger.Info().Msg("kafka disabled; contribution events not consumed")
	}

	// Kick off the singleton refresh loop. A fixed workflow ID per task
	// queue means an already running loop is not an error.
	refreshClient := temporal.NewScoreRefreshClient(temporalClient, cfg.Temporal.TaskQueue)
	workflowID, runID, err := refreshClient.StartScoreRefresh(ctx, workflows.ScoreRefreshWorkflow, workflows.ScoreRefreshInput{
		StaleWindowDays: cfg.Feed.StaleWindowDays,
		BatchSize:       cfg.Feed.RefreshBatchSize,
		RefreshInterval: cfg.Feed.RefreshInterval,
	})
	switch {
	case temporal.IsWorkflowAlreadyStarted(err):
		logger.Info().Msg("score refresh loop already running")
	case err != nil:
		return fmt.Errorf("start score refresh workflow: %w", err)
	default:
		logger.Info().
			Str("workflow_id", workflowID).
			Str("run_id", runID).
			Msg("score refresh loop started")
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
