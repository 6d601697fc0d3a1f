package domain

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Event type constants for outbox events.
const (
	EventTypeFeedEntryCreated    = "feed.entry_created"
	EventTypeFeedEntryUpdated    = "feed.entry_updated"
	EventTypeFeedScoresRefreshed = "feed.scores_refreshed"
	EventTypeReputationAwarded   = "reputation.awarded"
	EventTypeReputationPenalized = "reputation.penalized"
)

// Aggregate type constants for outbox events.
const (
	AggregateTypeFeedEntry  = "feed_entry"
	AggregateTypeReputation = "reputation"
)

// OutboxEvent represents an event to be published via the outbox pattern.
type OutboxEvent struct {
	EventID       uuid.UUID
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Attempts      int
	CreatedAt     time.Time
}

// NewOutboxEvent creates a new outbox event with the given parameters.
// The payload is JSON-serialized automatically.
func NewOutboxEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*OutboxEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:       uuid.New(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now(),
	}, nil
}

// FeedEntryCreatedPayload is the payload for feed.entry_created events.
type FeedEntryCreatedPayload struct {
	EntryID     uuid.UUID   `json:"entry_id"`
	ContentType ContentType `json:"content_type"`
	ItemID      uuid.UUID   `json:"item_id"`
	Action      FeedAction  `json:"action"`
	HotScore    int         `json:"hot_score"`
}

// FeedEntryUpdatedPayload is the payload for feed.entry_updated events.
type FeedEntryUpdatedPayload struct {
	EntryID     uuid.UUID   `json:"entry_id"`
	ContentType ContentType `json:"content_type"`
	ItemID      uuid.UUID   `json:"item_id"`
	HotScore    int         `json:"hot_score"`
}

// FeedScoresRefreshedPayload is the payload for feed.scores_refreshed events.
type FeedScoresRefreshedPayload struct {
	EntriesScored int           `json:"entries_scored"`
	EntriesFailed int           `json:"entries_failed"`
	Duration      time.Duration `json:"duration_ns"`
	RefreshedAt   time.Time     `json:"refreshed_at"`
}

// ReputationAwardedPayload is the payload for reputation.awarded events.
type ReputationAwardedPayload struct {
	UserID     uuid.UUID        `json:"user_id"`
	Type       ContributionType `json:"type"`
	Amount     float64          `json:"amount"`
	Delta      int              `json:"delta"`
	TotalAfter int              `json:"total_after"`
}

// ReputationPenalizedPayload is the payload for reputation.penalized events.
type ReputationPenalizedPayload struct {
	UserID     uuid.UUID        `json:"user_id"`
	Type       ContributionType `json:"type"`
	Delta      int              `json:"delta"`
	TotalAfter int              `json:"total_after"`
}
