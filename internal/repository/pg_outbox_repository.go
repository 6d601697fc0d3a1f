package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/researchhub/platform-service/internal/domain"
)

// Compile-time interface verification.
var _ OutboxRepository = (*PgOutboxRepository)(nil)

// Outbox event states.
const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
	outboxStatusDead      = "dead"
)

// PgOutboxRepository is a PostgreSQL implementation of OutboxRepository.
type PgOutboxRepository struct {
	db DBTX
}

// NewPgOutboxRepository creates a new PostgreSQL outbox repository.
func NewPgOutboxRepository(db DBTX) *PgOutboxRepository {
	return &PgOutboxRepository{db: db}
}

// Insert stores a new outbox event in the pending state.
func (r *PgOutboxRepository) Insert(ctx context.Context, event *domain.OutboxEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "event cannot be nil")
	}
	if event.EventType == "" {
		return domain.NewValidationError("event_type", "event type is required")
	}
	if event.AggregateID == "" {
		return domain.NewValidationError("aggregate_id", "aggregate ID is required")
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.EventVersion == 0 {
		event.EventVersion = 1
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO outbox_events (
			event_id, event_version, aggregate_id, aggregate_type,
			event_type, payload, status, attempts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)`

	_, err := r.db.Exec(ctx, query,
		event.EventID,
		event.EventVersion,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		event.Payload,
		outboxStatusPending,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// ClaimPending atomically claims up to batchSize pending events whose lease
// has expired. SKIP LOCKED keeps concurrent processors from claiming the
// same rows.
func (r *PgOutboxRepository) ClaimPending(ctx context.Context, batchSize int, lease time.Duration) ([]*domain.OutboxEvent, error) {
	if batchSize <= 0 {
		return nil, domain.NewValidationError("batch_size", "batch size must be positive")
	}

	query := `
		UPDATE outbox_events
		SET lease_until = NOW() + $2
		WHERE event_id IN (
			SELECT event_id FROM outbox_events
			WHERE status = $3 AND (lease_until IS NULL OR lease_until < NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING event_id, event_version, aggregate_id, aggregate_type,
			event_type, payload, attempts, created_at`

	rows, err := r.db.Query(ctx, query, batchSize, lease, outboxStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.OutboxEvent, 0, batchSize)
	for rows.Next() {
		var event domain.OutboxEvent
		err := rows.Scan(
			&event.EventID, &event.EventVersion, &event.AggregateID, &event.AggregateType,
			&event.EventType, &event.Payload, &event.Attempts, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}

// MarkPublished transitions the given events to the published state.
func (r *PgOutboxRepository) MarkPublished(ctx context.Context, eventIDs []uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}

	query := `
		UPDATE outbox_events
		SET status = $1, published_at = NOW(), lease_until = NULL
		WHERE event_id = ANY($2)`

	if _, err := r.db.Exec(ctx, query, outboxStatusPublished, eventIDs); err != nil {
		return fmt.Errorf("failed to mark events published: %w", err)
	}

	return nil
}

// MarkFailed records a failed publish attempt, dead-lettering the event when
// it exhausts maxAttempts.
func (r *PgOutboxRepository) MarkFailed(ctx context.Context, eventID uuid.UUID, publishErr string, maxAttempts int) error {
	if maxAttempts <= 0 {
		return domain.NewValidationError("max_attempts", "max attempts must be positive")
	}

	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1,
			last_error = $2,
			lease_until = NULL,
			status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE event_id = $1`

	result, err := r.db.Exec(ctx, query, eventID, publishErr, maxAttempts, outboxStatusDead)
	if err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("outbox event", eventID.String())
	}

	return nil
}

// CountPending returns the number of events awaiting publication.
func (r *PgOutboxRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE status = $1`, outboxStatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}

	return count, nil
}
