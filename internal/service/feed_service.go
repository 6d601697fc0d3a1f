package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/feed"
	"github.com/researchhub/platform-service/internal/observability"
	"github.com/researchhub/platform-service/internal/outbox"
	"github.com/researchhub/platform-service/internal/repository"
)

// FeedPagination bounds the page_size query parameter.
type FeedPagination struct {
	DefaultPageSize int
	MaxPageSize     int
}

// ListFeedRequest describes one feed page request.
type ListFeedRequest struct {
	View      domain.FeedView
	HubSlug   string
	Diversify bool
	Page      int
	PageSize  int
}

// FeedService owns feed entry scoring and listing. Entries are scored on
// write; the background refresh keeps scores from going stale as time-decay
// moves them.
type FeedService struct {
	db         TxRunner
	entries    repository.FeedEntryRepository
	hubs       repository.HubRepository
	events     repository.OutboxRepository
	hotScorer  *feed.HotScorer
	fundScorer *feed.FundScorer
	diversify  feed.DiversifyConfig
	pagination FeedPagination
	emitter    *outbox.Emitter
	logger     zerolog.Logger
	metrics    *observability.Metrics

	// newRepos builds transaction-scoped repositories. Overridable in tests.
	newRepos func(tx pgx.Tx) (repository.FeedEntryRepository, repository.OutboxRepository)
}

// NewFeedService creates a feed service. The entries, hubs and events
// repositories serve non-transactional operations directly from the pool.
func NewFeedService(
	db TxRunner,
	entries repository.FeedEntryRepository,
	hubs repository.HubRepository,
	events repository.OutboxRepository,
	hotScorer *feed.HotScorer,
	fundScorer *feed.FundScorer,
	diversify feed.DiversifyConfig,
	pagination FeedPagination,
	emitter *outbox.Emitter,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *FeedService {
	if pagination.DefaultPageSize <= 0 {
		pagination.DefaultPageSize = 20
	}
	if pagination.MaxPageSize <= 0 {
		pagination.MaxPageSize = 100
	}
	return &FeedService{
		db:         db,
		entries:    entries,
		hubs:       hubs,
		events:     events,
		hotScorer:  hotScorer,
		fundScorer: fundScorer,
		diversify:  diversify,
		pagination: pagination,
		emitter:    emitter,
		logger:     logger.With().Str("component", "feed_service").Logger(),
		metrics:    metrics,
		newRepos: func(tx pgx.Tx) (repository.FeedEntryRepository, repository.OutboxRepository) {
			return repository.NewPgFeedEntryRepository(tx), repository.NewPgOutboxRepository(tx)
		},
	}
}

// UpsertEntry scores and persists a feed entry, emitting a created or
// updated event in the same transaction. The subcategory is resolved from
// the entry's hubs when the caller did not set one.
func (s *FeedService) UpsertEntry(ctx context.Context, entry *domain.FeedEntry) (*domain.FeedEntry, error) {
	if entry == nil {
		return nil, domain.NewValidationError("entry", "entry cannot be nil")
	}

	now := time.Now().UTC()
	entry.HotScore = s.ScoreEntry(entry, now)

	if entry.Subcategory == nil && len(entry.HubIDs) > 0 {
		if err := s.resolveSubcategory(ctx, entry); err != nil {
			return nil, err
		}
	}

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		entryRepo, outboxRepo := s.newRepos(tx)

		stored, err := entryRepo.Upsert(ctx, entry)
		if err != nil {
			return err
		}
		entry = stored

		created := stored.CreatedAt.Equal(stored.UpdatedAt)
		var event *domain.OutboxEvent
		if created {
			event, err = s.emitter.EmitFeedEntryCreated(stored)
		} else {
			event, err = s.emitter.EmitFeedEntryUpdated(stored)
		}
		if err != nil {
			return fmt.Errorf("emit feed event: %w", err)
		}
		return outboxRepo.Insert(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("entry_id", entry.ID.String()).
		Str("content_type", string(entry.ContentType)).
		Int("hot_score", entry.HotScore).
		Msg("feed entry upserted")

	return entry, nil
}

// resolveSubcategory copies the subcategory of the entry's first hub that
// carries one. Entries whose hubs have no subcategory stay uncategorized.
func (s *FeedService) resolveSubcategory(ctx context.Context, entry *domain.FeedEntry) error {
	hubs, err := s.hubs.GetByIDs(ctx, entry.HubIDs)
	if err != nil {
		return err
	}
	for _, hub := range hubs {
		if hub.Subcategory != nil {
			entry.Subcategory = hub.Subcategory
			return nil
		}
	}
	return nil
}

// ScoreEntry computes the ranking score for an entry at the given instant.
// Grants and preregistrations use the funding best-score formula; everything
// else uses the hot score.
func (s *FeedService) ScoreEntry(entry *domain.FeedEntry, now time.Time) int {
	switch entry.ContentType {
	case domain.ContentTypeGrant, domain.ContentTypePreregistration:
		score := s.fundScorer.ScoreEntry(entry, now)
		if s.metrics != nil {
			s.metrics.RecordFundScore()
		}
		// Stored at x100 so penalty bands survive the integer truncation.
		return int(score * 100)
	default:
		if s.metrics != nil {
			s.metrics.RecordHotScore(string(entry.ContentType))
		}
		return s.hotScorer.Score(entry, now)
	}
}

// GetEntry retrieves a feed entry by ID.
func (s *FeedService) GetEntry(ctx context.Context, id uuid.UUID) (*domain.FeedEntry, error) {
	return s.entries.GetByID(ctx, id)
}

// ScoreBreakdown explains an entry's hot score component by component.
func (s *FeedService) ScoreBreakdown(ctx context.Context, id uuid.UUID) (*feed.Breakdown, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.hotScorer.Breakdown(entry, time.Now().UTC()), nil
}

// ListFeed retrieves one page of the feed. Diversification runs only when
// requested and never on the funding view, whose status-bucket ordering
// must not be disturbed.
func (s *FeedService) ListFeed(ctx context.Context, req ListFeedRequest) (*domain.FeedPage, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = s.pagination.DefaultPageSize
	}
	if req.PageSize > s.pagination.MaxPageSize {
		req.PageSize = s.pagination.MaxPageSize
	}

	page, err := s.entries.List(ctx, repository.FeedFilter{
		View:    req.View,
		HubSlug: req.HubSlug,
		Limit:   req.PageSize,
		Offset:  (req.Page - 1) * req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	if req.Diversify && req.View != domain.FeedViewFunding {
		original := page.Entries
		page.Entries = feed.Diversify(original, s.diversify)
		if s.metrics != nil {
			s.metrics.RecordDiversificationPass(displacedCount(original, page.Entries))
		}
	}

	if s.metrics != nil {
		view := req.View
		if view == "" {
			view = domain.FeedViewPopular
		}
		s.metrics.RecordFeedRequest(string(view), len(page.Entries))
	}

	return page, nil
}

// displacedCount counts entries the diversification pass moved off their
// score-ordered position.
func displacedCount(original, diversified []*domain.FeedEntry) int {
	displaced := 0
	for i := range original {
		if i >= len(diversified) || original[i] != diversified[i] {
			displaced++
		}
	}
	return displaced
}

// ListHubs retrieves all hubs ordered by namespace then name.
func (s *FeedService) ListHubs(ctx context.Context) ([]*domain.Hub, error) {
	return s.hubs.List(ctx)
}

// UpsertHub persists a hub definition.
func (s *FeedService) UpsertHub(ctx context.Context, hub *domain.Hub) (*domain.Hub, error) {
	return s.hubs.Upsert(ctx, hub)
}

// ListStale retrieves entries whose scores should be recomputed.
func (s *FeedService) ListStale(ctx context.Context, window time.Duration, limit, offset int) ([]*domain.FeedEntry, error) {
	return s.entries.ListStale(ctx, window, limit, offset)
}

// RecomputeScores rescores the given entries at one shared instant and
// persists every score that moved. Returns the number of updated rows.
func (s *FeedService) RecomputeScores(ctx context.Context, entries []*domain.FeedEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	start := time.Now()

	scores := make(map[uuid.UUID]int, len(entries))
	for _, entry := range entries {
		score := s.ScoreEntry(entry, now)
		if score != entry.HotScore {
			scores[entry.ID] = score
		}
	}

	updated, err := s.entries.BulkUpdateHotScores(ctx, scores)
	if err != nil {
		return updated, err
	}

	if s.metrics != nil {
		s.metrics.RecordScoreRefreshBatch(updated, time.Since(start).Seconds())
	}
	return updated, nil
}

// RefreshMaterializedViews refreshes the popular and latest feed views.
func (s *FeedService) RefreshMaterializedViews(ctx context.Context) error {
	return s.entries.RefreshMaterializedViews(ctx)
}

// EmitScoresRefreshed records a feed.scores_refreshed outbox event
// summarizing one refresh run.
func (s *FeedService) EmitScoresRefreshed(ctx context.Context, payload domain.FeedScoresRefreshedPayload) error {
	event, err := s.emitter.EmitScoresRefreshed(payload)
	if err != nil {
		return fmt.Errorf("emit scores refreshed event: %w", err)
	}
	return s.events.Insert(ctx, event)
}
