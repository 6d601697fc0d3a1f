// Package chaos provides fault injection tests for the score refresh and
// enrichment workflows.
//
// These tests verify that the workflows handle failure scenarios correctly:
// transient database errors during rescoring, materialized view refresh
// failures, OpenAlex rate limiting, and event publish failures. All tests use
// the Temporal test environment with mocked activities (no external services
// required).
package chaos

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/researchhub/platform-service/internal/temporal/activities"
	"github.com/researchhub/platform-service/internal/temporal/workflows"
)

// newRefreshInput returns a ScoreRefreshInput configured for chaos tests.
func newRefreshInput() workflows.ScoreRefreshInput {
	return workflows.ScoreRefreshInput{
		StaleWindowDays: 30,
		BatchSize:       100,
	}
}

// TestChaos_RecomputeFailsThenRecovers verifies that a refresh pass completes
// when the batch rescoring activity fails on its first two invocations with
// retryable errors, then succeeds.
//
// The closure-based mock with an atomic counter simulates transient database
// contention: the first two calls return a retryable ApplicationError and the
// third returns a normal batch result.
func TestChaos_RecomputeFailsThenRecovers(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var scoreAct *activities.ScoreActivities

	var recomputeCalls int32
	env.OnActivity(scoreAct.RecomputeBatch, mock.Anything, mock.Anything).Return(
		func(_ context.Context, _ activities.RecomputeBatchInput) (activities.RecomputeBatchResult, error) {
			n := atomic.AddInt32(&recomputeCalls, 1)
			if n <= 2 {
				return activities.RecomputeBatchResult{}, temporal.NewApplicationError(
					"could not serialize access due to concurrent update",
					"DB_TRANSIENT",
				)
			}
			return activities.RecomputeBatchResult{Scanned: 40, Updated: 12}, nil
		},
	)
	env.OnActivity(scoreAct.RefreshViews, mock.Anything).Return(nil).Once()
	env.OnActivity(scoreAct.PublishRefreshSummary, mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(workflows.ScoreRefreshWorkflow, newRefreshInput())

	require.True(t, env.IsWorkflowCompleted())
	assert.True(t, workflow.IsContinueAsNewError(env.GetWorkflowError()),
		"pass should complete and continue as new after transient failures")
	assert.GreaterOrEqual(t, atomic.LoadInt32(&recomputeCalls), int32(3))
}

// TestChaos_ViewRefreshExhaustsRetries verifies that a persistently failing
// materialized view refresh fails the pass after its retries are exhausted.
func TestChaos_ViewRefreshExhaustsRetries(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var scoreAct *activities.ScoreActivities

	env.OnActivity(scoreAct.RecomputeBatch, mock.Anything, mock.Anything).
		Return(activities.RecomputeBatchResult{Scanned: 10, Updated: 3}, nil).Once()

	var refreshCalls int32
	env.OnActivity(scoreAct.RefreshViews, mock.Anything).Return(
		func(_ context.Context) error {
			atomic.AddInt32(&refreshCalls, 1)
			return temporal.NewApplicationError("deadlock detected", "DB_TRANSIENT")
		},
	)

	env.ExecuteWorkflow(workflows.ScoreRefreshWorkflow, newRefreshInput())

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.False(t, workflow.IsContinueAsNewError(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&refreshCalls),
		"view refresh retries three times before giving up")
	env.AssertNotCalled(t, "PublishRefreshSummary", mock.Anything, mock.Anything)
}

// TestChaos_SummaryPublishNeverBlocksThePass verifies that a summary event
// that fails on every attempt does not fail a pass that already rescored
// its entries.
func TestChaos_SummaryPublishNeverBlocksThePass(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var scoreAct *activities.ScoreActivities

	env.OnActivity(scoreAct.RecomputeBatch, mock.Anything, mock.Anything).
		Return(activities.RecomputeBatchResult{Scanned: 5, Updated: 5}, nil).Once()
	env.OnActivity(scoreAct.RefreshViews, mock.Anything).Return(nil).Once()
	env.OnActivity(scoreAct.PublishRefreshSummary, mock.Anything, mock.Anything).Return(
		temporal.NewApplicationError("kafka unavailable", "BROKER_TRANSIENT"),
	)

	env.ExecuteWorkflow(workflows.ScoreRefreshWorkflow, newRefreshInput())

	require.True(t, env.IsWorkflowCompleted())
	assert.True(t, workflow.IsContinueAsNewError(env.GetWorkflowError()),
		"summary publishing is best-effort")
}

// TestChaos_EnrichmentRateLimitedThenRecovers verifies that an enrichment
// run absorbs OpenAlex rate limiting: the activity fails twice with a
// retryable error, then succeeds.
func TestChaos_EnrichmentRateLimitedThenRecovers(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var enrichAct *activities.EnrichmentActivities

	var enrichCalls int32
	env.OnActivity(enrichAct.EnrichEntry, mock.Anything, mock.Anything).Return(
		func(_ context.Context, _ activities.EnrichEntryInput) (activities.EnrichEntryResult, error) {
			n := atomic.AddInt32(&enrichCalls, 1)
			if n <= 2 {
				return activities.EnrichEntryResult{}, temporal.NewApplicationError(
					"openalex rate limited", "RATE_LIMITED",
				)
			}
			return activities.EnrichEntryResult{Enriched: true}, nil
		},
	)

	env.ExecuteWorkflow(workflows.EnrichEntriesWorkflow, workflows.EnrichEntriesInput{
		EntryIDs: []uuid.UUID{uuid.New()},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.EnrichEntriesResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 1, result.Enriched)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&enrichCalls))
}

// TestChaos_EnrichmentInvalidInputNotRetried verifies that a non-retryable
// enrichment failure is attempted exactly once and counted as failed without
// sinking the batch.
func TestChaos_EnrichmentInvalidInputNotRetried(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var enrichAct *activities.EnrichmentActivities

	okID := uuid.New()
	badID := uuid.New()

	var badCalls int32
	env.OnActivity(enrichAct.EnrichEntry, mock.Anything, activities.EnrichEntryInput{EntryID: okID}).
		Return(activities.EnrichEntryResult{Enriched: true}, nil).Once()
	env.OnActivity(enrichAct.EnrichEntry, mock.Anything, activities.EnrichEntryInput{EntryID: badID}).Return(
		func(_ context.Context, _ activities.EnrichEntryInput) (activities.EnrichEntryResult, error) {
			atomic.AddInt32(&badCalls, 1)
			return activities.EnrichEntryResult{}, temporal.NewNonRetryableApplicationError(
				"invalid work ID", "invalid_input", nil,
			)
		},
	)

	env.ExecuteWorkflow(workflows.EnrichEntriesWorkflow, workflows.EnrichEntriesInput{
		EntryIDs: []uuid.UUID{okID, badID},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.EnrichEntriesResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 1, result.Enriched)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&badCalls), "invalid input is not retried")
}
