//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchhub/platform-service/internal/config"
	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/outbox"
	"github.com/researchhub/platform-service/internal/repository"
)

func TestOutboxClaimAndPublish(t *testing.T) {
	cleanTable(t, "outbox_events")
	ctx := context.Background()
	repo := repository.NewPgOutboxRepository(testPool)
	emitter := outbox.NewEmitter("platform-service-test")

	entry := &domain.FeedEntry{
		ID:          uuid.New(),
		ContentType: domain.ContentTypePaper,
		ItemID:      uuid.New(),
		Action:      domain.FeedActionPublish,
		HotScore:    1500,
	}
	event, err := emitter.EmitFeedEntryCreated(entry)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, event))

	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	// The first claim leases the event; a second claim inside the lease
	// window sees nothing.
	claimed, err := repo.ClaimPending(ctx, 10, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, domain.EventTypeFeedEntryCreated, claimed[0].EventType)
	assert.Equal(t, entry.ID.String(), claimed[0].AggregateID)

	again, err := repo.ClaimPending(ctx, 10, 30*time.Second)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, repo.MarkPublished(ctx, []uuid.UUID{claimed[0].EventID}))

	pending, err = repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestOutboxDeadLetterAfterMaxAttempts(t *testing.T) {
	cleanTable(t, "outbox_events")
	ctx := context.Background()
	repo := repository.NewPgOutboxRepository(testPool)
	emitter := outbox.NewEmitter("platform-service-test")

	event, err := emitter.EmitScoresRefreshed(domain.FeedScoresRefreshedPayload{
		EntriesScored: 42,
		RefreshedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, event))

	// Two failed attempts against maxAttempts=2 dead-letter the event.
	require.NoError(t, repo.MarkFailed(ctx, event.EventID, "broker unreachable", 2))
	require.NoError(t, repo.MarkFailed(ctx, event.EventID, "broker unreachable", 2))

	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending, "dead-lettered events are no longer pending")

	var status string
	var attempts int
	err = testPool.QueryRow(ctx,
		`SELECT status, attempts FROM outbox_events WHERE event_id = $1`, event.EventID,
	).Scan(&status, &attempts)
	require.NoError(t, err)
	assert.Equal(t, "dead", status)
	assert.Equal(t, 2, attempts)
}

func TestOutboxProcessorDrainsPending(t *testing.T) {
	cleanTable(t, "outbox_events")
	ctx := context.Background()
	repo := repository.NewPgOutboxRepository(testPool)
	emitter := outbox.NewEmitter("platform-service-test")

	for i := 0; i < 3; i++ {
		event, err := emitter.EmitFeedEntryUpdated(&domain.FeedEntry{
			ID:          uuid.New(),
			ContentType: domain.ContentTypePost,
			ItemID:      uuid.New(),
			Action:      domain.FeedActionPublish,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Insert(ctx, event))
	}

	published := &capturingPublisher{}
	processor := newTestProcessor(repo, published)
	require.NoError(t, processor.ProcessBatch(ctx))

	assert.Len(t, published.events, 3)
	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

// newTestProcessor builds a processor with small-batch settings.
func newTestProcessor(repo repository.OutboxRepository, publisher outbox.Publisher) *outbox.Processor {
	return outbox.NewProcessor(repo, publisher, config.OutboxConfig{
		PollInterval:  10 * time.Millisecond,
		BatchSize:     10,
		MaxRetries:    3,
		LeaseDuration: 30 * time.Second,
	}, zerolog.Nop(), nil)
}

// capturingPublisher records published events in order.
type capturingPublisher struct {
	events []*domain.OutboxEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }
