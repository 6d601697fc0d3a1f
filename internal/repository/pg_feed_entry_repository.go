package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/researchhub/platform-service/internal/domain"
)

// Compile-time interface verification.
var _ FeedEntryRepository = (*PgFeedEntryRepository)(nil)

// feedEntryColumns is the shared column list for feed entry selects. The
// hub_ids column is aggregated from the link table so one scan produces a
// complete entry.
const feedEntryColumns = `
	f.id, f.content_type, f.item_id, f.action, f.action_date,
	f.content, f.metrics, f.hot_score, f.subcategory, f.user_id,
	(SELECT COALESCE(array_agg(eh.hub_id), '{}') FROM feed_entry_hubs eh WHERE eh.entry_id = f.id),
	f.created_at, f.updated_at`

// PgFeedEntryRepository is a PostgreSQL implementation of FeedEntryRepository.
type PgFeedEntryRepository struct {
	db DBTX
}

// NewPgFeedEntryRepository creates a new PostgreSQL feed entry repository.
func NewPgFeedEntryRepository(db DBTX) *PgFeedEntryRepository {
	return &PgFeedEntryRepository{db: db}
}

// Upsert inserts a new feed entry or updates the existing one for the same
// (content_type, item_id, action) triple. The same item can carry separate
// entries per action, e.g. a bounty that was OPENed and later PUBLISHed.
func (r *PgFeedEntryRepository) Upsert(ctx context.Context, entry *domain.FeedEntry) (*domain.FeedEntry, error) {
	if entry == nil {
		return nil, domain.NewValidationError("entry", "entry cannot be nil")
	}
	if entry.ContentType == "" {
		return nil, domain.NewValidationError("content_type", "content type is required")
	}
	if entry.ItemID == uuid.Nil {
		return nil, domain.NewValidationError("item_id", "item ID is required")
	}
	if entry.Action == "" {
		return nil, domain.NewValidationError("action", "action is required")
	}

	now := time.Now().UTC()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ActionDate.IsZero() {
		entry.ActionDate = now
	}

	query := `
		INSERT INTO feed_entries (
			id, content_type, item_id, action, action_date,
			content, metrics, hot_score, subcategory, user_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
		ON CONFLICT (content_type, item_id, action) DO UPDATE SET
			action_date = EXCLUDED.action_date,
			content = EXCLUDED.content,
			metrics = EXCLUDED.metrics,
			hot_score = EXCLUDED.hot_score,
			subcategory = EXCLUDED.subcategory,
			user_id = COALESCE(EXCLUDED.user_id, feed_entries.user_id),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.ContentType,
		entry.ItemID,
		entry.Action,
		entry.ActionDate,
		entry.Content,
		entry.Metrics,
		entry.HotScore,
		entry.Subcategory,
		entry.UserID,
		now,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert feed entry: %w", err)
	}

	if err := r.replaceHubLinks(ctx, entry.ID, entry.HubIDs); err != nil {
		return nil, err
	}

	return entry, nil
}

// replaceHubLinks replaces the hub links for an entry with the given set.
func (r *PgFeedEntryRepository) replaceHubLinks(ctx context.Context, entryID uuid.UUID, hubIDs []uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM feed_entry_hubs WHERE entry_id = $1`, entryID); err != nil {
		return fmt.Errorf("failed to clear hub links: %w", err)
	}
	if len(hubIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, hubID := range hubIDs {
		batch.Queue(`
			INSERT INTO feed_entry_hubs (entry_id, hub_id)
			VALUES ($1, $2)
			ON CONFLICT (entry_id, hub_id) DO NOTHING`, entryID, hubID)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range hubIDs {
		if _, err := br.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return domain.NewNotFoundError("hub", hubIDs[i].String())
			}
			return fmt.Errorf("failed to link hub at index %d: %w", i, err)
		}
	}

	return nil
}

// GetByID retrieves a feed entry by its UUID.
func (r *PgFeedEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FeedEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM feed_entries f WHERE f.id = $1`, feedEntryColumns)

	row := r.db.QueryRow(ctx, query, id)
	entry, err := scanFeedEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("feed entry", id.String())
		}
		return nil, fmt.Errorf("failed to get feed entry: %w", err)
	}

	return entry, nil
}

// List retrieves one page of feed entries matching the filter. Unfiltered
// popular and latest pages read from the materialized snapshots maintained by
// the refresh worker; hub-filtered and funding queries go to the live table.
func (r *PgFeedEntryRepository) List(ctx context.Context, filter FeedFilter) (*domain.FeedPage, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	source := "feed_entries"
	if filter.HubSlug == "" {
		switch filter.View {
		case domain.FeedViewPopular:
			source = "feed_entries_popular"
		case domain.FeedViewLatest:
			source = "feed_entries_latest"
		}
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	switch {
	case filter.View == domain.FeedViewFunding:
		conditions = append(conditions, fmt.Sprintf("f.content_type = ANY($%d)", argIndex))
		args = append(args, []domain.ContentType{domain.ContentTypeGrant, domain.ContentTypePreregistration})
		argIndex++
	case filter.View == domain.FeedViewPopular && source == "feed_entries":
		// Popular carries papers and posts only. The snapshot bakes this
		// filter into its definition; the live table needs it spelled out.
		conditions = append(conditions, fmt.Sprintf("f.content_type = ANY($%d)", argIndex))
		args = append(args, []domain.ContentType{domain.ContentTypePaper, domain.ContentTypePost})
		argIndex++
	}

	if filter.HubSlug != "" {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM feed_entry_hubs eh
			INNER JOIN hubs h ON h.id = eh.hub_id
			WHERE eh.entry_id = f.id AND h.slug = $%d)`, argIndex))
		args = append(args, filter.HubSlug)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s f %s", source, whereClause)
	var totalCount int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count feed entries: %w", err)
	}

	orderClause := "ORDER BY f.hot_score DESC, f.action_date DESC"
	if filter.View == domain.FeedViewLatest {
		orderClause = "ORDER BY f.action_date DESC, f.id DESC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s f
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		feedEntryColumns, source, whereClause, orderClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.FeedEntry, 0, filter.Limit)
	for rows.Next() {
		entry, err := scanFeedEntryFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed entries: %w", err)
	}

	return &domain.FeedPage{Entries: entries, Total: totalCount}, nil
}

// BulkUpdateHotScores updates the hot score of multiple entries in a single
// network roundtrip using pgx.Batch.
func (r *PgFeedEntryRepository) BulkUpdateHotScores(ctx context.Context, scores map[uuid.UUID]int) (int, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	query := `
		UPDATE feed_entries
		SET hot_score = $1, updated_at = NOW()
		WHERE id = $2`

	batch := &pgx.Batch{}
	for id, score := range scores {
		batch.Queue(query, score, id)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	updated := 0
	for range scores {
		tag, err := br.Exec()
		if err != nil {
			return updated, fmt.Errorf("failed to update hot score: %w", err)
		}
		updated += int(tag.RowsAffected())
	}

	return updated, nil
}

// ListStale retrieves entries inside the stale window, oldest action first.
// The ordering keys never change when a score is rewritten, so offset paging
// stays stable while BulkUpdateHotScores runs between pages.
func (r *PgFeedEntryRepository) ListStale(ctx context.Context, window time.Duration, limit, offset int) ([]*domain.FeedEntry, error) {
	if window <= 0 {
		return nil, domain.NewValidationError("window", "stale window must be positive")
	}
	applyPaginationDefaults(&limit, &offset)

	cutoff := time.Now().UTC().Add(-window)
	query := fmt.Sprintf(`
		SELECT %s
		FROM feed_entries f
		WHERE f.action_date >= $1
		ORDER BY f.action_date ASC, f.id ASC
		LIMIT $2 OFFSET $3`, feedEntryColumns)

	rows, err := r.db.Query(ctx, query, cutoff, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.FeedEntry, 0, limit)
	for rows.Next() {
		entry, err := scanFeedEntryFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale entries: %w", err)
	}

	return entries, nil
}

// RefreshMaterializedViews refreshes the snapshots List serves unfiltered
// popular and latest pages from. CONCURRENTLY keeps them readable during the
// refresh.
func (r *PgFeedEntryRepository) RefreshMaterializedViews(ctx context.Context) error {
	views := []string{"feed_entries_popular", "feed_entries_latest"}
	for _, view := range views {
		if _, err := r.db.Exec(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", view)); err != nil {
			return fmt.Errorf("failed to refresh %s: %w", view, err)
		}
	}
	return nil
}

// feedEntryScanDest holds the destination pointers for scanning a FeedEntry row.
type feedEntryScanDest struct {
	entry  domain.FeedEntry
	hubIDs []uuid.UUID
}

// destinations returns the slice of pointers for Scan operations.
func (d *feedEntryScanDest) destinations() []interface{} {
	return []interface{}{
		&d.entry.ID, &d.entry.ContentType, &d.entry.ItemID, &d.entry.Action, &d.entry.ActionDate,
		&d.entry.Content, &d.entry.Metrics, &d.entry.HotScore, &d.entry.Subcategory, &d.entry.UserID,
		&d.hubIDs,
		&d.entry.CreatedAt, &d.entry.UpdatedAt,
	}
}

// finalize performs post-scan processing.
func (d *feedEntryScanDest) finalize() (*domain.FeedEntry, error) {
	d.entry.HubIDs = d.hubIDs
	return &d.entry, nil
}

// scanFeedEntry scans a single row into a FeedEntry.
func scanFeedEntry(row pgx.Row) (*domain.FeedEntry, error) {
	var dest feedEntryScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanFeedEntryFromRows scans the current row from pgx.Rows into a FeedEntry.
func scanFeedEntryFromRows(rows pgx.Rows) (*domain.FeedEntry, error) {
	var dest feedEntryScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
