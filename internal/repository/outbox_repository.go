package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/researchhub/platform-service/internal/domain"
)

// OutboxRepository manages transactional outbox events. Events are inserted
// in the same transaction as the state change they describe, then claimed
// and published asynchronously by the outbox processor.
type OutboxRepository interface {
	// Insert stores a new outbox event in the pending state. Call it with a
	// pgx.Tx-backed repository so the event commits atomically with the
	// state change it describes.
	Insert(ctx context.Context, event *domain.OutboxEvent) error

	// ClaimPending atomically claims up to batchSize pending events whose
	// lease has expired, extending each lease by the given duration.
	// Claimed rows are locked with FOR UPDATE SKIP LOCKED so concurrent
	// processors never claim the same event.
	ClaimPending(ctx context.Context, batchSize int, lease time.Duration) ([]*domain.OutboxEvent, error)

	// MarkPublished transitions the given events to the published state.
	MarkPublished(ctx context.Context, eventIDs []uuid.UUID) error

	// MarkFailed records a failed publish attempt. Events that reach
	// maxAttempts transition to the dead state and are never retried.
	MarkFailed(ctx context.Context, eventID uuid.UUID, publishErr string, maxAttempts int) error

	// CountPending returns the number of events awaiting publication.
	CountPending(ctx context.Context) (int, error)
}
