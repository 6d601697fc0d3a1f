package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/researchhub/platform-service/internal/domain"
)

// Compile-time interface verification.
var _ ReputationRepository = (*PgReputationRepository)(nil)

// verifiedBonusConstraint is the partial unique index that enforces the
// one-time VERIFIED_ACCOUNT bonus per user.
const verifiedBonusConstraint = "uq_score_changes_verified_bonus"

// PgReputationRepository is a PostgreSQL implementation of ReputationRepository.
type PgReputationRepository struct {
	db DBTX
}

// NewPgReputationRepository creates a new PostgreSQL reputation repository.
func NewPgReputationRepository(db DBTX) *PgReputationRepository {
	return &PgReputationRepository{db: db}
}

// ApplyScoreChange applies one reputation delta and appends the history row.
func (r *PgReputationRepository) ApplyScoreChange(ctx context.Context, change *domain.ScoreChange) (*domain.ScoreChange, error) {
	if change == nil {
		return nil, domain.NewValidationError("change", "change cannot be nil")
	}
	if change.UserID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}
	if !change.Type.Valid() {
		return nil, domain.NewValidationError("type", "unknown contribution type: "+string(change.Type))
	}

	now := time.Now().UTC()
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}

	// Move the running total. The verified flag flips on exactly once.
	totalQuery := `
		INSERT INTO user_reputation (user_id, total, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			total = user_reputation.total + $2,
			verified = user_reputation.verified OR $3,
			updated_at = NOW()
		RETURNING total`

	verified := change.Type == domain.ContributionVerifiedAccount
	err := r.db.QueryRow(ctx, totalQuery,
		change.UserID,
		change.Delta,
		verified,
		now,
	).Scan(&change.TotalAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to update reputation total: %w", err)
	}

	historyQuery := `
		INSERT INTO reputation_score_changes (
			id, user_id, type, amount, delta, total_after,
			item_id, item_content_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, historyQuery,
		change.ID,
		change.UserID,
		change.Type,
		change.Amount,
		change.Delta,
		change.TotalAfter,
		change.ItemID,
		change.ItemContentType,
		now,
	).Scan(&change.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == verifiedBonusConstraint {
			return nil, domain.ErrBonusAlreadyGranted
		}
		return nil, fmt.Errorf("failed to record score change: %w", err)
	}

	return change, nil
}

// GetUserReputation retrieves a user's current total plus recent changes.
func (r *PgReputationRepository) GetUserReputation(ctx context.Context, userID uuid.UUID, recentLimit int) (*domain.UserReputation, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}
	if recentLimit < 0 {
		recentLimit = 0
	}

	query := `
		SELECT user_id, total, verified
		FROM user_reputation
		WHERE user_id = $1`

	var rep domain.UserReputation
	err := r.db.QueryRow(ctx, query, userID).Scan(&rep.UserID, &rep.Total, &rep.Verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user reputation", userID.String())
		}
		return nil, fmt.Errorf("failed to get user reputation: %w", err)
	}

	if recentLimit > 0 {
		recent, err := r.ListScoreChanges(ctx, userID, recentLimit, 0)
		if err != nil {
			return nil, err
		}
		rep.Recent = recent
	}

	return &rep, nil
}

// ListScoreChanges retrieves a user's score change history, newest first.
func (r *PgReputationRepository) ListScoreChanges(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ScoreChange, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}
	applyPaginationDefaults(&limit, &offset)

	query := `
		SELECT id, user_id, type, amount, delta, total_after,
			item_id, item_content_type, created_at
		FROM reputation_score_changes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list score changes: %w", err)
	}
	defer rows.Close()

	changes := make([]*domain.ScoreChange, 0, limit)
	for rows.Next() {
		var change domain.ScoreChange
		err := rows.Scan(
			&change.ID, &change.UserID, &change.Type, &change.Amount, &change.Delta,
			&change.TotalAfter, &change.ItemID, &change.ItemContentType, &change.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score change: %w", err)
		}
		changes = append(changes, &change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score changes: %w", err)
	}

	return changes, nil
}

// SetVerified marks a user's reputation record as verified.
func (r *PgReputationRepository) SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	if userID == uuid.Nil {
		return domain.NewValidationError("user_id", "user ID is required")
	}

	query := `
		INSERT INTO user_reputation (user_id, total, verified, created_at, updated_at)
		VALUES ($1, 0, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			verified = $2,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, userID, verified, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set verified flag: %w", err)
	}

	return nil
}
