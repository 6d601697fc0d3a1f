package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/researchhub/platform-service/internal/domain"
)

// HubRepository manages hubs and their subcategory mapping. Hubs are the
// topical grouping of feed entries; a hub's subcategory drives feed
// diversification.
type HubRepository interface {
	// Upsert inserts a new hub or updates the existing one with the same slug.
	// Returns the created or updated hub with its assigned ID.
	// Returns domain.ErrInvalidInput if the hub has no slug or name.
	Upsert(ctx context.Context, hub *domain.Hub) (*domain.Hub, error)

	// GetBySlug retrieves a hub by its URL slug.
	// Returns domain.ErrNotFound if no matching hub exists.
	GetBySlug(ctx context.Context, slug string) (*domain.Hub, error)

	// GetByIDs retrieves multiple hubs by their UUIDs.
	// Returns only the hubs that were found; missing IDs are silently skipped.
	// Returns nil, nil if the input slice is empty.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Hub, error)

	// List retrieves all hubs ordered by namespace then name.
	List(ctx context.Context) ([]*domain.Hub, error)
}
