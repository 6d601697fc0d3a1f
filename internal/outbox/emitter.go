package outbox

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/researchhub/platform-service/internal/domain"
)

// Emitter builds outbox events for the platform service. It centralizes
// event construction so aggregate types and payload shapes stay consistent
// across call sites.
type Emitter struct {
	serviceName string
}

// NewEmitter creates a new Emitter. The service name is carried for log
// attribution only.
func NewEmitter(serviceName string) *Emitter {
	if serviceName == "" {
		serviceName = "platform-service"
	}
	return &Emitter{serviceName: serviceName}
}

// Emit builds an outbox event from the given parameters.
func (e *Emitter) Emit(eventType, aggregateID, aggregateType string, payload interface{}) (*domain.OutboxEvent, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}
	if aggregateID == "" {
		return nil, fmt.Errorf("aggregate_id is required")
	}

	event, err := domain.NewOutboxEvent(eventType, aggregateID, aggregateType, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return event, nil
}

// EmitFeedEntryCreated builds a feed.entry_created event for a new entry.
func (e *Emitter) EmitFeedEntryCreated(entry *domain.FeedEntry) (*domain.OutboxEvent, error) {
	return e.Emit(
		domain.EventTypeFeedEntryCreated,
		entry.ID.String(),
		domain.AggregateTypeFeedEntry,
		domain.FeedEntryCreatedPayload{
			EntryID:     entry.ID,
			ContentType: entry.ContentType,
			ItemID:      entry.ItemID,
			Action:      entry.Action,
			HotScore:    entry.HotScore,
		},
	)
}

// EmitFeedEntryUpdated builds a feed.entry_updated event for a rescored or
// re-snapshot entry.
func (e *Emitter) EmitFeedEntryUpdated(entry *domain.FeedEntry) (*domain.OutboxEvent, error) {
	return e.Emit(
		domain.EventTypeFeedEntryUpdated,
		entry.ID.String(),
		domain.AggregateTypeFeedEntry,
		domain.FeedEntryUpdatedPayload{
			EntryID:     entry.ID,
			ContentType: entry.ContentType,
			ItemID:      entry.ItemID,
			HotScore:    entry.HotScore,
		},
	)
}

// EmitScoresRefreshed builds a feed.scores_refreshed event summarizing one
// background refresh run.
func (e *Emitter) EmitScoresRefreshed(payload domain.FeedScoresRefreshedPayload) (*domain.OutboxEvent, error) {
	return e.Emit(
		domain.EventTypeFeedScoresRefreshed,
		uuid.New().String(),
		domain.AggregateTypeFeedEntry,
		payload,
	)
}

// EmitReputationChange builds a reputation.awarded or reputation.penalized
// event depending on the sign of the applied delta.
func (e *Emitter) EmitReputationChange(change *domain.ScoreChange) (*domain.OutboxEvent, error) {
	if change.Delta < 0 {
		return e.Emit(
			domain.EventTypeReputationPenalized,
			change.UserID.String(),
			domain.AggregateTypeReputation,
			domain.ReputationPenalizedPayload{
				UserID:     change.UserID,
				Type:       change.Type,
				Delta:      change.Delta,
				TotalAfter: change.TotalAfter,
			},
		)
	}

	return e.Emit(
		domain.EventTypeReputationAwarded,
		change.UserID.String(),
		domain.AggregateTypeReputation,
		domain.ReputationAwardedPayload{
			UserID:     change.UserID,
			Type:       change.Type,
			Amount:     change.Amount,
			Delta:      change.Delta,
			TotalAfter: change.TotalAfter,
		},
	)
}
