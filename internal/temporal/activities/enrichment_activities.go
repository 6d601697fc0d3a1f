package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	json "github.com/goccy/go-json"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/openalex"
	"github.com/researchhub/platform-service/internal/service"
)

// WorksClient is the slice of the OpenAlex client the enrichment activity uses.
type WorksClient interface {
	GetWork(ctx context.Context, id string) (*openalex.Work, error)
}

// FeedEntryStore is the slice of the feed service used to load and persist
// entries during enrichment.
type FeedEntryStore interface {
	GetEntry(ctx context.Context, id uuid.UUID) (*domain.FeedEntry, error)
	UpsertEntry(ctx context.Context, entry *domain.FeedEntry) (*domain.FeedEntry, error)
}

var (
	_ WorksClient    = (*openalex.Client)(nil)
	_ FeedEntryStore = (*service.FeedService)(nil)
)

// EnrichmentActivities refreshes citation metrics on paper entries from
// OpenAlex. Entries without a DOI are skipped.
type EnrichmentActivities struct {
	entries FeedEntryStore
	works   WorksClient
}

// NewEnrichmentActivities creates a new EnrichmentActivities.
func NewEnrichmentActivities(entries FeedEntryStore, works WorksClient) *EnrichmentActivities {
	return &EnrichmentActivities{entries: entries, works: works}
}

// EnrichEntryInput is the serializable input for the EnrichEntry activity.
type EnrichEntryInput struct {
	EntryID uuid.UUID
}

// EnrichEntryResult reports the outcome of one enrichment attempt.
type EnrichEntryResult struct {
	// Enriched is true when citation metrics were written back.
	Enriched bool

	// SkipReason explains why the entry was left untouched.
	SkipReason string
}

// EnrichEntry looks up the entry's DOI on OpenAlex and folds the citation
// counts into the entry's metrics snapshot. Rescoring happens when the
// updated entry is upserted.
func (a *EnrichmentActivities) EnrichEntry(ctx context.Context, input EnrichEntryInput) (EnrichEntryResult, error) {
	logger := activity.GetLogger(ctx)

	entry, err := a.entries.GetEntry(ctx, input.EntryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return EnrichEntryResult{SkipReason: "entry_missing"}, nil
		}
		return EnrichEntryResult{}, fmt.Errorf("load entry: %w", err)
	}

	if entry.ContentType != domain.ContentTypePaper {
		return EnrichEntryResult{SkipReason: "not_a_paper"}, nil
	}

	doi := doiFromContent(entry.Content)
	if doi == "" {
		return EnrichEntryResult{SkipReason: "no_doi"}, nil
	}

	work, err := a.works.GetWork(ctx, doi)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return EnrichEntryResult{SkipReason: "work_not_found"}, nil
		case errors.Is(err, domain.ErrRateLimited):
			// Retryable; the workflow's retry policy backs off.
			return EnrichEntryResult{}, fmt.Errorf("openalex rate limited: %w", err)
		case errors.Is(err, domain.ErrInvalidInput):
			return EnrichEntryResult{}, temporal.NewNonRetryableApplicationError("invalid work ID", "invalid_input", err)
		default:
			return EnrichEntryResult{}, fmt.Errorf("fetch work: %w", err)
		}
	}

	metrics, err := mergeCitationMetrics(entry.Metrics, work)
	if err != nil {
		return EnrichEntryResult{}, fmt.Errorf("merge citation metrics: %w", err)
	}
	entry.Metrics = metrics

	if _, err := a.entries.UpsertEntry(ctx, entry); err != nil {
		return EnrichEntryResult{}, fmt.Errorf("persist enriched entry: %w", err)
	}

	logger.Info("entry enriched",
		"entryID", entry.ID,
		"doi", doi,
		"citations", work.CitedByCount,
	)
	return EnrichEntryResult{Enriched: true}, nil
}

// doiFromContent pulls the DOI out of a content snapshot. Snapshots are
// sparse, so a missing or malformed DOI simply reads as empty.
func doiFromContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	var snapshot struct {
		DOI string `json:"doi"`
	}
	if err := json.Unmarshal(content, &snapshot); err != nil {
		return ""
	}
	return openalex.NormalizeDOI(snapshot.DOI)
}

// mergeCitationMetrics writes the citation counters into the metrics
// snapshot, preserving every other key.
func mergeCitationMetrics(metrics []byte, work *openalex.Work) ([]byte, error) {
	merged := map[string]interface{}{}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &merged); err != nil {
			// A corrupt snapshot is rebuilt from scratch rather than kept.
			merged = map[string]interface{}{}
		}
	}

	merged["citations"] = work.CitedByCount
	merged["recent_citations"] = work.RecentCitations(2)

	return json.Marshal(merged)
}
