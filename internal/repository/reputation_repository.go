package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/researchhub/platform-service/internal/domain"
)

// ReputationRepository manages user reputation totals and their score change
// history. Score changes are append-only; the running total lives on the
// user_reputation row and must only be moved through ApplyScoreChange so
// total and history stay consistent.
type ReputationRepository interface {
	// ApplyScoreChange applies one reputation delta: it moves the user's
	// running total and appends a score change record carrying the total
	// after the change. Both writes must happen in the same transaction,
	// so callers pass a pgx.Tx-backed repository for anything that matters.
	// The VERIFIED_ACCOUNT bonus is one-time per user; a repeat attempt
	// returns domain.ErrBonusAlreadyGranted.
	ApplyScoreChange(ctx context.Context, change *domain.ScoreChange) (*domain.ScoreChange, error)

	// GetUserReputation retrieves a user's current total, verification flag,
	// and their most recent score changes (up to recentLimit).
	// Returns domain.ErrNotFound if the user has no reputation record.
	GetUserReputation(ctx context.Context, userID uuid.UUID, recentLimit int) (*domain.UserReputation, error)

	// ListScoreChanges retrieves a user's score change history, newest first.
	ListScoreChanges(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ScoreChange, error)

	// SetVerified marks a user's reputation record as belonging to a
	// verified account. Creates the record if it does not exist.
	SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error
}
