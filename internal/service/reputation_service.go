package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/observability"
	"github.com/researchhub/platform-service/internal/outbox"
	"github.com/researchhub/platform-service/internal/reputation"
	"github.com/researchhub/platform-service/internal/repository"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ReputationService records contributions and serves reputation reads. Every
// recorded contribution moves the user's total, appends a score change row,
// and emits an outbox event inside one transaction.
type ReputationService struct {
	db         TxRunner
	reader     repository.ReputationRepository
	calculator *reputation.Calculator
	emitter    *outbox.Emitter
	logger     zerolog.Logger
	metrics    *observability.Metrics

	// newRepos builds transaction-scoped repositories. Overridable in tests.
	newRepos func(tx pgx.Tx) (repository.ReputationRepository, repository.OutboxRepository)
}

// NewReputationService creates a reputation service. The reader repository
// serves non-transactional reads directly from the pool.
func NewReputationService(
	db TxRunner,
	reader repository.ReputationRepository,
	calculator *reputation.Calculator,
	emitter *outbox.Emitter,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *ReputationService {
	return &ReputationService{
		db:         db,
		reader:     reader,
		calculator: calculator,
		emitter:    emitter,
		logger:     logger.With().Str("component", "reputation_service").Logger(),
		metrics:    metrics,
		newRepos: func(tx pgx.Tx) (repository.ReputationRepository, repository.OutboxRepository) {
			return repository.NewPgReputationRepository(tx), repository.NewPgOutboxRepository(tx)
		},
	}
}

// RecordContribution converts a contribution into a reputation delta and
// persists it. Zero-delta contributions (comments, peer reviews, overridden
// weights) are accepted but not persisted; the returned change carries a
// zero delta and no total.
func (s *ReputationService) RecordContribution(ctx context.Context, contribution domain.Contribution) (*domain.ScoreChange, error) {
	if contribution.UserID == uuid.Nil {
		s.rejectContribution("missing_user")
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}
	if !contribution.Type.Valid() {
		s.rejectContribution("unknown_type")
		return nil, domain.NewValidationError("type", "unknown contribution type: "+string(contribution.Type))
	}
	if contribution.Amount < 0 {
		s.rejectContribution("negative_amount")
		return nil, domain.NewValidationError("amount", "amount cannot be negative")
	}

	delta := s.calculator.Delta(contribution)

	change := &domain.ScoreChange{
		ID:              uuid.New(),
		UserID:          contribution.UserID,
		Type:            contribution.Type,
		Amount:          contribution.Amount,
		Delta:           delta,
		ItemID:          contribution.ItemID,
		ItemContentType: contribution.ContentType,
	}

	if delta == 0 {
		s.rejectContribution("zero_delta")
		s.logger.Debug().
			Str("user_id", contribution.UserID.String()).
			Str("type", string(contribution.Type)).
			Msg("contribution carries no reputation weight")
		return change, nil
	}

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		repRepo, outboxRepo := s.newRepos(tx)

		applied, err := repRepo.ApplyScoreChange(ctx, change)
		if err != nil {
			return err
		}
		change = applied

		event, err := s.emitter.EmitReputationChange(change)
		if err != nil {
			return fmt.Errorf("emit reputation event: %w", err)
		}
		return outboxRepo.Insert(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordContribution(string(change.Type), change.Delta)
	}
	s.logger.Info().
		Str("user_id", change.UserID.String()).
		Str("type", string(change.Type)).
		Int("delta", change.Delta).
		Int("total_after", change.TotalAfter).
		Msg("contribution recorded")

	return change, nil
}

// VerifyAccount awards the one-time verified account bonus. Returns
// domain.ErrBonusAlreadyGranted if the user has already been verified.
func (s *ReputationService) VerifyAccount(ctx context.Context, userID uuid.UUID) (*domain.ScoreChange, error) {
	return s.RecordContribution(ctx, domain.Contribution{
		UserID: userID,
		Type:   domain.ContributionVerifiedAccount,
	})
}

// GetUserReputation retrieves a user's current total plus recent changes.
func (s *ReputationService) GetUserReputation(ctx context.Context, userID uuid.UUID, recentLimit int) (*domain.UserReputation, error) {
	return s.reader.GetUserReputation(ctx, userID, recentLimit)
}

// ListScoreChanges retrieves a user's score change history, newest first.
func (s *ReputationService) ListScoreChanges(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ScoreChange, error) {
	return s.reader.ListScoreChanges(ctx, userID, limit, offset)
}

func (s *ReputationService) rejectContribution(reason string) {
	if s.metrics != nil {
		s.metrics.RecordContributionRejected(reason)
	}
}
