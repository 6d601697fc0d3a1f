package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/researchhub/platform-service/internal/domain"
)

// FeedEntryRepository manages denormalized feed entries and their scores.
// Feed entries are upserted on (content_type, item_id, action) so that
// repeated events refresh the snapshot instead of duplicating rows, while an
// item can still surface once per action.
type FeedEntryRepository interface {
	// Upsert inserts a new feed entry or updates the existing one for the
	// same (content_type, item_id, action) triple. Content, metrics and hub
	// links are replaced with the new snapshot.
	// Returns the created or updated entry with its assigned ID.
	// Returns domain.ErrInvalidInput if the entry is missing required fields.
	Upsert(ctx context.Context, entry *domain.FeedEntry) (*domain.FeedEntry, error)

	// GetByID retrieves a feed entry by its UUID.
	// Returns domain.ErrNotFound if no matching entry exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FeedEntry, error)

	// List retrieves one page of feed entries matching the filter.
	// Popular ordering sorts by hot_score descending and carries PAPER and
	// POST entries only; latest sorts by action_date descending. The funding
	// view restricts to GRANT and PREREGISTRATION entries. Unfiltered
	// popular/latest pages are served from the materialized snapshots. The
	// total count reflects all matching records regardless of limit/offset.
	List(ctx context.Context, filter FeedFilter) (*domain.FeedPage, error)

	// BulkUpdateHotScores updates the hot score of multiple entries in a
	// single network roundtrip. Missing entries are counted, not errors.
	// Returns the number of rows actually updated.
	BulkUpdateHotScores(ctx context.Context, scores map[uuid.UUID]int) (int, error)

	// ListStale retrieves entries whose action_date falls inside the given
	// window, oldest action first. The ordering survives score rewrites, so
	// the refresh worker can page with limit/offset across batches.
	ListStale(ctx context.Context, window time.Duration, limit, offset int) ([]*domain.FeedEntry, error)

	// RefreshMaterializedViews refreshes the popular and latest feed views
	// concurrently so readers are never blocked.
	RefreshMaterializedViews(ctx context.Context) error
}

// FeedFilter specifies criteria for listing feed entries.
type FeedFilter struct {
	// View selects the ordering: popular, latest, or funding.
	View domain.FeedView

	// HubSlug restricts results to entries linked to the hub with this slug (optional).
	HubSlug string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *FeedFilter) Validate() error {
	if f.View == "" {
		f.View = domain.FeedViewPopular
	}
	if !f.View.Valid() {
		return domain.NewValidationError("feed_view", "unknown feed view: "+string(f.View))
	}
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
