package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/researchhub/platform-service/internal/config"
	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/observability"
	"github.com/researchhub/platform-service/internal/repository"
)

// Processor drains the outbox table. It polls for pending events, publishes
// them through the configured Publisher, and marks them published or failed.
// Multiple processors can run concurrently; row leases keep them from
// publishing the same event twice under normal operation.
type Processor struct {
	repo      repository.OutboxRepository
	publisher Publisher
	cfg       config.OutboxConfig
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewProcessor creates a new outbox processor.
func NewProcessor(
	repo repository.OutboxRepository,
	publisher Publisher,
	cfg config.OutboxConfig,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Processor {
	return &Processor{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "outbox_processor").Logger(),
		metrics:   metrics,
	}
}

// Run polls until the context is cancelled. It returns the context error on
// shutdown so callers can distinguish cancellation from failure.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("poll_interval", p.cfg.PollInterval).
		Int("batch_size", p.cfg.BatchSize).
		Msg("outbox processor started")

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox processor stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				p.logger.Error().Err(err).Msg("outbox batch failed")
			}
		}
	}
}

// ProcessBatch claims and publishes one batch of pending events. Exported
// so tests and one-shot callers can drive the processor without the poll
// loop.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	events, err := p.repo.ClaimPending(ctx, p.cfg.BatchSize, p.cfg.LeaseDuration)
	if err != nil {
		return fmt.Errorf("claim pending events: %w", err)
	}
	if len(events) == 0 {
		p.updatePendingGauge(ctx)
		return nil
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		if err := p.publisher.Publish(ctx, event); err != nil {
			p.handlePublishFailure(ctx, event, err)
			continue
		}
		published = append(published, event.EventID)
		if p.metrics != nil {
			p.metrics.RecordOutboxPublished(event.EventType)
		}
	}

	if len(published) > 0 {
		if err := p.repo.MarkPublished(ctx, published); err != nil {
			return fmt.Errorf("mark events published: %w", err)
		}
		p.logger.Debug().
			Int("published", len(published)).
			Int("claimed", len(events)).
			Msg("outbox batch published")
	}

	p.updatePendingGauge(ctx)
	return nil
}

// handlePublishFailure records a failed attempt and dead-letters the event
// when it exhausts its retries.
func (p *Processor) handlePublishFailure(ctx context.Context, event *domain.OutboxEvent, publishErr error) {
	if p.metrics != nil {
		p.metrics.RecordOutboxFailed(event.EventType)
	}

	deadLettered := event.Attempts+1 >= p.cfg.MaxRetries

	logEvent := p.logger.Warn()
	if deadLettered {
		logEvent = p.logger.Error()
		if p.metrics != nil {
			p.metrics.RecordOutboxDeadLettered()
		}
	}
	logEvent.
		Err(publishErr).
		Str("event_id", event.EventID.String()).
		Str("event_type", event.EventType).
		Int("attempts", event.Attempts+1).
		Bool("dead_lettered", deadLettered).
		Msg("outbox publish failed")

	if err := p.repo.MarkFailed(ctx, event.EventID, publishErr.Error(), p.cfg.MaxRetries); err != nil {
		p.logger.Error().Err(err).
			Str("event_id", event.EventID.String()).
			Msg("failed to record publish failure")
	}
}

// updatePendingGauge refreshes the pending events gauge. Errors here are
// logged and otherwise ignored so gauge problems never stall the drain.
func (p *Processor) updatePendingGauge(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	count, err := p.repo.CountPending(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to count pending outbox events")
		return
	}
	p.metrics.SetOutboxPending(count)
}
