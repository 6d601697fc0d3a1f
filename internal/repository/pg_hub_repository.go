package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/researchhub/platform-service/internal/domain"
)

// Compile-time interface verification.
var _ HubRepository = (*PgHubRepository)(nil)

// PgHubRepository is a PostgreSQL implementation of HubRepository.
type PgHubRepository struct {
	db DBTX
}

// NewPgHubRepository creates a new PostgreSQL hub repository.
func NewPgHubRepository(db DBTX) *PgHubRepository {
	return &PgHubRepository{db: db}
}

// Upsert inserts a new hub or updates the existing one with the same slug.
func (r *PgHubRepository) Upsert(ctx context.Context, hub *domain.Hub) (*domain.Hub, error) {
	if hub == nil {
		return nil, domain.NewValidationError("hub", "hub cannot be nil")
	}
	if hub.Slug == "" {
		return nil, domain.NewValidationError("slug", "slug is required")
	}
	if hub.Name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}

	now := time.Now().UTC()
	if hub.ID == uuid.Nil {
		hub.ID = uuid.New()
	}

	query := `
		INSERT INTO hubs (id, name, slug, namespace, subcategory, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			namespace = EXCLUDED.namespace,
			subcategory = COALESCE(EXCLUDED.subcategory, hubs.subcategory),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		hub.ID,
		hub.Name,
		hub.Slug,
		hub.Namespace,
		hub.Subcategory,
		now,
	).Scan(&hub.ID, &hub.CreatedAt, &hub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert hub: %w", err)
	}

	return hub, nil
}

// GetBySlug retrieves a hub by its URL slug.
func (r *PgHubRepository) GetBySlug(ctx context.Context, slug string) (*domain.Hub, error) {
	if slug == "" {
		return nil, domain.NewValidationError("slug", "slug is required")
	}

	query := `
		SELECT id, name, slug, namespace, subcategory, created_at, updated_at
		FROM hubs
		WHERE slug = $1`

	var hub domain.Hub
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&hub.ID, &hub.Name, &hub.Slug, &hub.Namespace, &hub.Subcategory,
		&hub.CreatedAt, &hub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("hub", slug)
		}
		return nil, fmt.Errorf("failed to get hub by slug: %w", err)
	}

	return &hub, nil
}

// GetByIDs retrieves multiple hubs by their UUIDs.
func (r *PgHubRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Hub, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, slug, namespace, subcategory, created_at, updated_at
		FROM hubs
		WHERE id = ANY($1)
		ORDER BY namespace, name`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get hubs by IDs: %w", err)
	}
	defer rows.Close()

	return collectHubs(rows)
}

// List retrieves all hubs ordered by namespace then name.
func (r *PgHubRepository) List(ctx context.Context) ([]*domain.Hub, error) {
	query := `
		SELECT id, name, slug, namespace, subcategory, created_at, updated_at
		FROM hubs
		ORDER BY namespace, name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list hubs: %w", err)
	}
	defer rows.Close()

	return collectHubs(rows)
}

// collectHubs scans all rows into hubs.
func collectHubs(rows pgx.Rows) ([]*domain.Hub, error) {
	var hubs []*domain.Hub
	for rows.Next() {
		var hub domain.Hub
		err := rows.Scan(
			&hub.ID, &hub.Name, &hub.Slug, &hub.Namespace, &hub.Subcategory,
			&hub.CreatedAt, &hub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hub: %w", err)
		}
		hubs = append(hubs, &hub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hubs: %w", err)
	}

	return hubs, nil
}
