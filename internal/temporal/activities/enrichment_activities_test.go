package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/openalex"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockEntryStore struct {
	entries  map[uuid.UUID]*domain.FeedEntry
	upserted []*domain.FeedEntry
	getErr   error
	upsertErr error
}

func (m *mockEntryStore) GetEntry(_ context.Context, id uuid.UUID) (*domain.FeedEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (m *mockEntryStore) UpsertEntry(_ context.Context, entry *domain.FeedEntry) (*domain.FeedEntry, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.upserted = append(m.upserted, entry)
	return entry, nil
}

type mockWorksClient struct {
	work   *openalex.Work
	err    error
	gotIDs []string
}

func (m *mockWorksClient) GetWork(_ context.Context, id string) (*openalex.Work, error) {
	m.gotIDs = append(m.gotIDs, id)
	if m.err != nil {
		return nil, m.err
	}
	return m.work, nil
}

func paperEntry(doi string) *domain.FeedEntry {
	content := `{"title": "Optogenetics review"}`
	if doi != "" {
		content = `{"title": "Optogenetics review", "doi": "` + doi + `"}`
	}
	return &domain.FeedEntry{
		ID:          uuid.New(),
		ContentType: domain.ContentTypePaper,
		ItemID:      uuid.New(),
		Action:      domain.FeedActionPublish,
		Content:     []byte(content),
		Metrics:     []byte(`{"votes": 7}`),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEnrichmentActivities_EnrichEntry(t *testing.T) {
	t.Run("folds citation counts into the metrics snapshot", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		entry := paperEntry("https://doi.org/10.7717/peerj.4375")
		store := &mockEntryStore{entries: map[uuid.UUID]*domain.FeedEntry{entry.ID: entry}}
		works := &mockWorksClient{work: &openalex.Work{
			CitedByCount: 1024,
			CountsByYear: []openalex.CountsByYear{
				{Year: 2026, CitedByCount: 120},
				{Year: 2025, CitedByCount: 300},
				{Year: 2024, CitedByCount: 200},
			},
		}}

		act := NewEnrichmentActivities(store, works)
		env.RegisterActivity(act.EnrichEntry)

		future, err := env.ExecuteActivity(act.EnrichEntry, EnrichEntryInput{EntryID: entry.ID})
		require.NoError(t, err)

		var result EnrichEntryResult
		require.NoError(t, future.Get(&result))
		assert.True(t, result.Enriched)

		require.Equal(t, []string{"10.7717/peerj.4375"}, works.gotIDs)

		require.Len(t, store.upserted, 1)
		var metrics map[string]interface{}
		require.NoError(t, json.Unmarshal(store.upserted[0].Metrics, &metrics))
		assert.Equal(t, float64(1024), metrics["citations"])
		assert.Equal(t, float64(420), metrics["recent_citations"])
		assert.Equal(t, float64(7), metrics["votes"], "existing metrics keys survive")
	})

	t.Run("skips entries without a DOI", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		entry := paperEntry("")
		store := &mockEntryStore{entries: map[uuid.UUID]*domain.FeedEntry{entry.ID: entry}}
		works := &mockWorksClient{}

		act := NewEnrichmentActivities(store, works)
		env.RegisterActivity(act.EnrichEntry)

		future, err := env.ExecuteActivity(act.EnrichEntry, EnrichEntryInput{EntryID: entry.ID})
		require.NoError(t, err)

		var result EnrichEntryResult
		require.NoError(t, future.Get(&result))
		assert.False(t, result.Enriched)
		assert.Equal(t, "no_doi", result.SkipReason)
		assert.Empty(t, works.gotIDs)
	})

	t.Run("skips non-paper entries", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		entry := paperEntry("10.1/x")
		entry.ContentType = domain.ContentTypePost
		store := &mockEntryStore{entries: map[uuid.UUID]*domain.FeedEntry{entry.ID: entry}}

		act := NewEnrichmentActivities(store, &mockWorksClient{})
		env.RegisterActivity(act.EnrichEntry)

		future, err := env.ExecuteActivity(act.EnrichEntry, EnrichEntryInput{EntryID: entry.ID})
		require.NoError(t, err)

		var result EnrichEntryResult
		require.NoError(t, future.Get(&result))
		assert.Equal(t, "not_a_paper", result.SkipReason)
	})

	t.Run("tolerates a deleted entry", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		act := NewEnrichmentActivities(&mockEntryStore{entries: map[uuid.UUID]*domain.FeedEntry{}}, &mockWorksClient{})
		env.RegisterActivity(act.EnrichEntry)

		future, err := env.ExecuteActivity(act.EnrichEntry, EnrichEntryInput{EntryID: uuid.New()})
		require.NoError(t, err)

		var result EnrichEntryResult
		require.NoError(t, future.Get(&result))
		assert.Equal(t, "entry_missing", result.SkipReason)
	})

	t.Run("tolerates a work missing upstream", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		entry := paperEntry("10.9999/gone")
		store := &mockEntryStore{entries: map[uuid.UUID]*domain.FeedEntry{entry.ID: entry}}
		works := &mockWorksClient{err: domain.NewNotFoundError("work", "10.9999/gone")}

		act := NewEnrichmentActivities(store, works)
		env.RegisterActivity(act.EnrichEntry)

		future, err := env.ExecuteActivity(act.EnrichEntry, EnrichEntryInput{EntryID: entry.ID})
		require.NoError(t, err)

		var result EnrichEntryResult
		require.NoError(t, future.Get(&result))
		assert.Equal(t, "work_not_found", result.SkipReason)
		assert.Empty(t, store.upserted)
	})

	t.Run("propagates transport failures", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		entry := paperEntry("10.1/x")
		store := &mockEntryStore{entries: map[uuid.UUID]*domain.FeedEntry{entry.ID: entry}}
		works := &mockWorksClient{err: errors.New("connection refused")}

		act := NewEnrichmentActivities(store, works)
		env.RegisterActivity(act.EnrichEntry)

		_, err := env.ExecuteActivity(act.EnrichEntry, EnrichEntryInput{EntryID: entry.ID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetch work")
	})
}
