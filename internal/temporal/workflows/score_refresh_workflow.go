// Package workflows defines the Temporal workflow that keeps feed scores
// fresh as time decay moves them.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	litemporal "github.com/researchhub/platform-service/internal/temporal"
	"github.com/researchhub/platform-service/internal/temporal/activities"
)

// QueryProgress re-exports the query name from the parent temporal package
// so callers can use either import.
const QueryProgress = litemporal.QueryProgress

// Activity timeout constants.
const (
	recomputeActivityTimeout = 2 * time.Minute
	refreshViewsTimeout      = 5 * time.Minute
	publishSummaryTimeout    = 30 * time.Second
)

// Refresh defaults applied when the input leaves a field zero.
const (
	defaultStaleWindowDays = 30
	defaultBatchSize       = 500
	defaultRefreshInterval = 30 * time.Minute

	// maxBatchesPerRun bounds a single run against a runaway stale set.
	maxBatchesPerRun = 1000
)

// ScoreRefreshInput contains the parameters for the score refresh workflow.
type ScoreRefreshInput struct {
	// StaleWindowDays bounds how far back entries are rescored.
	StaleWindowDays int

	// BatchSize is the number of entries rescored per activity call.
	BatchSize int

	// RefreshInterval is the pause between refresh passes.
	RefreshInterval time.Duration
}

// refreshProgress tracks the state of the current pass, exposed via the
// QueryProgress query handler.
type refreshProgress struct {
	Phase            string
	BatchesCompleted int
	EntriesScanned   int
	EntriesUpdated   int
}

// ScoreRefreshWorkflow runs one full refresh pass: it rescores stale entries
// batch by batch, refreshes the materialized feed views, publishes a summary
// event, sleeps for the refresh interval, and continues as new. History
// stays bounded because every pass is its own run.
//
// Progress is queryable via the "progress" query type. Cancellation takes
// effect between activities and during the sleep.
func ScoreRefreshWorkflow(ctx workflow.Context, input ScoreRefreshInput) error {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	if input.StaleWindowDays <= 0 {
		input.StaleWindowDays = defaultStaleWindowDays
	}
	if input.BatchSize <= 0 {
		input.BatchSize = defaultBatchSize
	}
	if input.RefreshInterval <= 0 {
		input.RefreshInterval = defaultRefreshInterval
	}

	progress := &refreshProgress{Phase: "rescoring"}
	if err := workflow.SetQueryHandler(ctx, QueryProgress, func() (refreshProgress, error) {
		return *progress, nil
	}); err != nil {
		return err
	}

	var scoreActivities *activities.ScoreActivities

	recomputeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: recomputeActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{"invalid_input"},
		},
	})

	offset := 0
	for batch := 0; batch < maxBatchesPerRun; batch++ {
		var result activities.RecomputeBatchResult
		err := workflow.ExecuteActivity(recomputeCtx, scoreActivities.RecomputeBatch, activities.RecomputeBatchInput{
			StaleWindowDays: input.StaleWindowDays,
			BatchSize:       input.BatchSize,
			Offset:          offset,
		}).Get(ctx, &result)
		if err != nil {
			logger.Error("batch rescoring failed", "offset", offset, "error", err)
			return err
		}

		progress.BatchesCompleted++
		progress.EntriesScanned += result.Scanned
		progress.EntriesUpdated += result.Updated
		offset += result.Scanned

		if result.Scanned < input.BatchSize {
			break
		}
	}

	progress.Phase = "refreshing_views"
	viewsCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: refreshViewsTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})
	if err := workflow.ExecuteActivity(viewsCtx, scoreActivities.RefreshViews).Get(ctx, nil); err != nil {
		logger.Error("materialized view refresh failed", "error", err)
		return err
	}

	// The summary event is best-effort: a publish failure must not fail the
	// pass that already rescored everything.
	progress.Phase = "publishing_summary"
	summaryCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: publishSummaryTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"invalid_input"},
		},
	})
	duration := workflow.Now(ctx).Sub(startTime)
	err := workflow.ExecuteActivity(summaryCtx, scoreActivities.PublishRefreshSummary, activities.PublishRefreshSummaryInput{
		EntriesScored:   progress.EntriesScanned,
		DurationSeconds: duration.Seconds(),
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("refresh summary publish failed", "error", err)
	}

	logger.Info("refresh pass complete",
		"batches", progress.BatchesCompleted,
		"scanned", progress.EntriesScanned,
		"updated", progress.EntriesUpdated,
		"duration", duration,
	)

	progress.Phase = "sleeping"
	if err := workflow.Sleep(ctx, input.RefreshInterval); err != nil {
		return err
	}

	return workflow.NewContinueAsNewError(ctx, ScoreRefreshWorkflow, input)
}
