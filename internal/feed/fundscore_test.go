package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/researchhub/platform-service/internal/domain"
)

func TestFundScorer_Score(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	scorer := NewFundScorer(DefaultFundScoreConfig())
	end := now.Add(30 * 24 * time.Hour)

	base := FundingSignals{
		Amount:          5000,
		Participants:    12,
		Comments:        4,
		Upvotes:         20,
		AgeHours:        48,
		HasOpen:         true,
		EarliestOpenEnd: &end,
	}

	t.Run("active outranks expired outranks closed", func(t *testing.T) {
		t.Parallel()
		active := scorer.Score(base, now)

		expired := base
		past := now.Add(-24 * time.Hour)
		expired.EarliestOpenEnd = &past
		expiredScore := scorer.Score(expired, now)

		closed := base
		closed.HasOpen = false
		closedScore := scorer.Score(closed, now)

		assert.Greater(t, active, expiredScore)
		assert.Greater(t, expiredScore, closedScore)
	})

	t.Run("penalties dominate engagement", func(t *testing.T) {
		t.Parallel()
		// A dead fundraise with huge engagement still ranks below a quiet
		// active one.
		whale := base
		whale.HasOpen = false
		whale.Amount = 1e6
		whale.Upvotes = 10000

		quiet := FundingSignals{AgeHours: 500, HasOpen: true}
		assert.Greater(t, scorer.Score(quiet, now), scorer.Score(whale, now))
	})

	t.Run("larger amounts score higher", func(t *testing.T) {
		t.Parallel()
		small := base
		small.Amount = 100
		assert.Greater(t, scorer.Score(base, now), scorer.Score(small, now))
	})

	t.Run("newer items score higher", func(t *testing.T) {
		t.Parallel()
		old := base
		old.AgeHours = 500
		assert.Greater(t, scorer.Score(base, now), scorer.Score(old, now))
	})

	t.Run("age floored at minimum", func(t *testing.T) {
		t.Parallel()
		zero := base
		zero.AgeHours = 0
		floor := base
		floor.AgeHours = 0.1
		assert.InDelta(t, scorer.Score(floor, now), scorer.Score(zero, now), 1e-9)
	})

	t.Run("open with no end date is active", func(t *testing.T) {
		t.Parallel()
		s := base
		s.EarliestOpenEnd = nil
		assert.Equal(t, FundingActive, s.SortOption(now))
	})
}

func TestExtractFundingSignals(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("grant", func(t *testing.T) {
		t.Parallel()
		end := now.Add(10 * 24 * time.Hour).Format(time.RFC3339)
		content := fmt.Sprintf(`{
			"type": "GRANT",
			"grant": {"amount": "250000", "status": "OPEN", "end_date": %q, "applicants": [{}, {}, {}]}
		}`, end)
		entry := testEntry(domain.ContentTypeGrant, content, `{"votes": 8, "replies": 3}`, now.Add(-72*time.Hour))

		s := ExtractFundingSignals(entry, now)
		assert.InDelta(t, 250000.0, s.Amount, 1e-9)
		assert.Equal(t, 3, s.Participants)
		assert.Equal(t, 8, s.Upvotes)
		assert.Equal(t, 3, s.Comments)
		assert.True(t, s.HasOpen)
		assert.Equal(t, FundingActive, s.SortOption(now))
	})

	t.Run("fundraise", func(t *testing.T) {
		t.Parallel()
		content := `{
			"type": "PREREGISTRATION",
			"fundraise": {"amount_raised": {"rsc": 1500}, "status": "COMPLETED", "contributors": {"total": 7}}
		}`
		entry := testEntry(domain.ContentTypePreregistration, content, `{}`, now.Add(-72*time.Hour))

		s := ExtractFundingSignals(entry, now)
		assert.InDelta(t, 1500.0, s.Amount, 1e-9)
		assert.Equal(t, 7, s.Participants)
		assert.False(t, s.HasOpen)
		assert.Equal(t, FundingClosed, s.SortOption(now))
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		entry := testEntry(domain.ContentTypeGrant, `{}`, `{}`, now.Add(-72*time.Hour))
		s := ExtractFundingSignals(entry, now)
		assert.Zero(t, s.Amount)
		assert.Equal(t, FundingClosed, s.SortOption(now))
		assert.InDelta(t, 72.0, s.AgeHours, 0.01)
	})
}
