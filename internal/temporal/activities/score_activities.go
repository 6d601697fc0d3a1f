// Package activities defines the Temporal activities for the score refresh
// pipeline. Activities carry small serializable inputs and outputs; entries
// themselves stay in the database.
package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/service"
)

// FeedScoreService is the slice of the feed service the refresh activities use.
type FeedScoreService interface {
	ListStale(ctx context.Context, window time.Duration, limit, offset int) ([]*domain.FeedEntry, error)
	RecomputeScores(ctx context.Context, entries []*domain.FeedEntry) (int, error)
	RefreshMaterializedViews(ctx context.Context) error
	EmitScoresRefreshed(ctx context.Context, payload domain.FeedScoresRefreshedPayload) error
}

var _ FeedScoreService = (*service.FeedService)(nil)

// ScoreActivities provides Temporal activities for recomputing feed entry
// scores. Methods on this struct are registered with the worker.
type ScoreActivities struct {
	feed FeedScoreService
}

// NewScoreActivities creates a new ScoreActivities.
func NewScoreActivities(feed FeedScoreService) *ScoreActivities {
	return &ScoreActivities{feed: feed}
}

// RecomputeBatchInput is the serializable input for the RecomputeBatch activity.
type RecomputeBatchInput struct {
	// StaleWindowDays bounds how far back entries are considered for refresh.
	StaleWindowDays int

	// BatchSize is the number of entries to load and rescore.
	BatchSize int

	// Offset is the position within the stale set, advanced by the workflow.
	Offset int
}

// RecomputeBatchResult reports one rescoring batch.
type RecomputeBatchResult struct {
	// Scanned is the number of entries loaded. A value below BatchSize
	// means the stale set is exhausted.
	Scanned int

	// Updated is the number of entries whose score actually moved.
	Updated int
}

// RecomputeBatch loads one batch of stale entries and rescores them at the
// current instant, persisting only scores that moved.
func (a *ScoreActivities) RecomputeBatch(ctx context.Context, input RecomputeBatchInput) (RecomputeBatchResult, error) {
	logger := activity.GetLogger(ctx)

	if input.BatchSize <= 0 {
		return RecomputeBatchResult{}, temporal.NewNonRetryableApplicationError(
			"batch size must be positive", "invalid_input", nil)
	}
	if input.StaleWindowDays <= 0 {
		return RecomputeBatchResult{}, temporal.NewNonRetryableApplicationError(
			"stale window must be positive", "invalid_input", nil)
	}

	window := time.Duration(input.StaleWindowDays) * 24 * time.Hour
	entries, err := a.feed.ListStale(ctx, window, input.BatchSize, input.Offset)
	if err != nil {
		return RecomputeBatchResult{}, fmt.Errorf("list stale entries: %w", err)
	}

	updated, err := a.feed.RecomputeScores(ctx, entries)
	if err != nil {
		return RecomputeBatchResult{Scanned: len(entries)}, fmt.Errorf("recompute scores: %w", err)
	}

	logger.Info("rescored batch",
		"offset", input.Offset,
		"scanned", len(entries),
		"updated", updated,
	)
	return RecomputeBatchResult{Scanned: len(entries), Updated: updated}, nil
}

// RefreshViews refreshes the popular and latest materialized feed views.
func (a *ScoreActivities) RefreshViews(ctx context.Context) error {
	if err := a.feed.RefreshMaterializedViews(ctx); err != nil {
		return fmt.Errorf("refresh materialized views: %w", err)
	}
	return nil
}

// PublishRefreshSummaryInput is the serializable input for PublishRefreshSummary.
type PublishRefreshSummaryInput struct {
	EntriesScored   int
	EntriesFailed   int
	DurationSeconds float64
}

// PublishRefreshSummary records a feed.scores_refreshed outbox event
// summarizing one refresh run. Publishing is best-effort from the workflow's
// perspective; validation failures are not retried.
func (a *ScoreActivities) PublishRefreshSummary(ctx context.Context, input PublishRefreshSummaryInput) error {
	err := a.feed.EmitScoresRefreshed(ctx, domain.FeedScoresRefreshedPayload{
		EntriesScored: input.EntriesScored,
		EntriesFailed: input.EntriesFailed,
		Duration:      time.Duration(input.DurationSeconds * float64(time.Second)),
		RefreshedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return temporal.NewNonRetryableApplicationError("invalid refresh summary", "invalid_input", err)
		}
		return fmt.Errorf("publish refresh summary: %w", err)
	}
	return nil
}
