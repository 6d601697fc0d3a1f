package workflows

import (
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/researchhub/platform-service/internal/temporal/activities"
)

const (
	enrichActivityTimeout = time.Minute

	// maxConcurrentEnrichments bounds parallel OpenAlex fetches so one
	// workflow cannot exhaust the polite-pool rate limit on its own.
	maxConcurrentEnrichments = 5
)

// EnrichEntriesInput contains the feed entries to enrich with citation
// metrics.
type EnrichEntriesInput struct {
	EntryIDs []uuid.UUID
}

// EnrichEntriesResult summarizes one enrichment run.
type EnrichEntriesResult struct {
	Enriched int
	Skipped  int
	Failed   int
}

// EnrichEntriesWorkflow fans the given entries out to the EnrichEntry
// activity with bounded concurrency. Individual failures are counted, not
// fatal, so one bad DOI cannot sink a batch.
func EnrichEntriesWorkflow(ctx workflow.Context, input EnrichEntriesInput) (EnrichEntriesResult, error) {
	logger := workflow.GetLogger(ctx)

	var enrichmentActivities *activities.EnrichmentActivities

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: enrichActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        4,
			NonRetryableErrorTypes: []string{"invalid_input"},
		},
	})

	var result EnrichEntriesResult
	sem := workflow.NewSemaphore(ctx, maxConcurrentEnrichments)
	wg := workflow.NewWaitGroup(ctx)

	for _, entryID := range input.EntryIDs {
		entryID := entryID
		if err := sem.Acquire(ctx, 1); err != nil {
			return result, err
		}

		wg.Add(1)
		workflow.Go(ctx, func(gctx workflow.Context) {
			defer wg.Done()
			defer sem.Release(1)

			var out activities.EnrichEntryResult
			err := workflow.ExecuteActivity(gctx, enrichmentActivities.EnrichEntry, activities.EnrichEntryInput{
				EntryID: entryID,
			}).Get(gctx, &out)
			switch {
			case err != nil:
				logger.Warn("entry enrichment failed", "entryID", entryID, "error", err)
				result.Failed++
			case out.Enriched:
				result.Enriched++
			default:
				result.Skipped++
			}
		})
	}

	wg.Wait(ctx)

	logger.Info("enrichment run complete",
		"entries", len(input.EntryIDs),
		"enriched", result.Enriched,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}
