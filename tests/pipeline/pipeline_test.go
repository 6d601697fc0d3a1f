// Package pipeline provides integration tests for the score refresh pipeline.
// Unlike the workflow unit tests, these run the real activity implementations
// against an in-memory feed service, verifying the complete flow:
// list stale -> rescore -> refresh views -> publish summary.
package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/temporal/activities"
	"github.com/researchhub/platform-service/internal/temporal/workflows"
)

// memoryFeedService is an in-memory stand-in for the feed service. It holds a
// fixed stale set and records every call the activities make.
type memoryFeedService struct {
	mu sync.Mutex

	stale []*domain.FeedEntry

	listCalls      []listCall
	rescored       int
	viewsRefreshed int
	summaries      []domain.FeedScoresRefreshedPayload
}

type listCall struct {
	limit  int
	offset int
}

func newMemoryFeedService(staleCount int) *memoryFeedService {
	s := &memoryFeedService{}
	for i := 0; i < staleCount; i++ {
		s.stale = append(s.stale, &domain.FeedEntry{
			ID:          uuid.New(),
			ContentType: domain.ContentTypePaper,
			ItemID:      uuid.New(),
			Action:      domain.FeedActionPublish,
			ActionDate:  time.Now().UTC().Add(-time.Duration(i+1) * time.Hour),
			HotScore:    i,
		})
	}
	return s
}

func (s *memoryFeedService) ListStale(_ context.Context, _ time.Duration, limit, offset int) ([]*domain.FeedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls = append(s.listCalls, listCall{limit: limit, offset: offset})

	if offset >= len(s.stale) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.stale) {
		end = len(s.stale)
	}
	return s.stale[offset:end], nil
}

func (s *memoryFeedService) RecomputeScores(_ context.Context, entries []*domain.FeedEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rescored += len(entries)
	return len(entries), nil
}

func (s *memoryFeedService) RefreshMaterializedViews(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewsRefreshed++
	return nil
}

func (s *memoryFeedService) EmitScoresRefreshed(_ context.Context, payload domain.FeedScoresRefreshedPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, payload)
	return nil
}

func TestRefreshPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	t.Run("full pass pages through the stale set", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		svc := newMemoryFeedService(237)
		env.RegisterActivity(activities.NewScoreActivities(svc))

		env.ExecuteWorkflow(workflows.ScoreRefreshWorkflow, workflows.ScoreRefreshInput{
			StaleWindowDays: 30,
			BatchSize:       100,
		})

		require.True(t, env.IsWorkflowCompleted())
		assert.True(t, workflow.IsContinueAsNewError(env.GetWorkflowError()))

		// 237 entries at batch size 100: offsets 0, 100, 200.
		require.Len(t, svc.listCalls, 3)
		assert.Equal(t, listCall{limit: 100, offset: 0}, svc.listCalls[0])
		assert.Equal(t, listCall{limit: 100, offset: 100}, svc.listCalls[1])
		assert.Equal(t, listCall{limit: 100, offset: 200}, svc.listCalls[2])

		assert.Equal(t, 237, svc.rescored)
		assert.Equal(t, 1, svc.viewsRefreshed)

		require.Len(t, svc.summaries, 1)
		assert.Equal(t, 237, svc.summaries[0].EntriesScored)
		assert.False(t, svc.summaries[0].RefreshedAt.IsZero())
	})

	t.Run("empty stale set still refreshes views", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		svc := newMemoryFeedService(0)
		env.RegisterActivity(activities.NewScoreActivities(svc))

		env.ExecuteWorkflow(workflows.ScoreRefreshWorkflow, workflows.ScoreRefreshInput{
			StaleWindowDays: 30,
			BatchSize:       100,
		})

		require.True(t, env.IsWorkflowCompleted())
		assert.True(t, workflow.IsContinueAsNewError(env.GetWorkflowError()))

		require.Len(t, svc.listCalls, 1)
		assert.Equal(t, 0, svc.rescored)
		assert.Equal(t, 1, svc.viewsRefreshed)
		require.Len(t, svc.summaries, 1)
		assert.Equal(t, 0, svc.summaries[0].EntriesScored)
	})

	t.Run("progress query reports the sleeping phase", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		svc := newMemoryFeedService(42)
		env.RegisterActivity(activities.NewScoreActivities(svc))

		// Query while the workflow sleeps between passes.
		type progressView struct {
			Phase            string
			BatchesCompleted int
			EntriesScanned   int
			EntriesUpdated   int
		}
		var observed progressView
		env.RegisterDelayedCallback(func() {
			val, err := env.QueryWorkflow(workflows.QueryProgress)
			require.NoError(t, err)
			require.NoError(t, val.Get(&observed))
		}, time.Minute)

		env.ExecuteWorkflow(workflows.ScoreRefreshWorkflow, workflows.ScoreRefreshInput{
			StaleWindowDays: 30,
			BatchSize:       100,
			RefreshInterval: 10 * time.Minute,
		})

		require.True(t, env.IsWorkflowCompleted())
		assert.Equal(t, "sleeping", observed.Phase)
		assert.Equal(t, 1, observed.BatchesCompleted)
		assert.Equal(t, 42, observed.EntriesScanned)
		assert.Equal(t, 42, observed.EntriesUpdated)
	})
}
