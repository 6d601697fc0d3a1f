package feed

import (
	"math"
	"time"

	"github.com/researchhub/platform-service/internal/domain"
)

// FundingSortOption categorizes a grant or fundraise for ordering.
type FundingSortOption int

const (
	FundingActive  FundingSortOption = 0
	FundingExpired FundingSortOption = 1
	FundingClosed  FundingSortOption = 2
)

// FundScoreConfig holds the tunables of the funding best-score formula.
type FundScoreConfig struct {
	AmountWeight      float64 `mapstructure:"amount_weight"`
	ParticipantWeight float64 `mapstructure:"participant_weight"`
	CommentWeight     float64 `mapstructure:"comment_weight"`
	UpvoteWeight      float64 `mapstructure:"upvote_weight"`

	Gravity     float64 `mapstructure:"gravity"`
	BaseHours   float64 `mapstructure:"base_hours"`
	MinAgeHours float64 `mapstructure:"min_age_hours"`

	// Penalties keep active items above expired ones and expired above
	// closed regardless of engagement.
	ExpiredPenalty float64 `mapstructure:"expired_penalty"`
	ClosedPenalty  float64 `mapstructure:"closed_penalty"`
}

// DefaultFundScoreConfig returns the production funding score constants.
func DefaultFundScoreConfig() FundScoreConfig {
	return FundScoreConfig{
		AmountWeight:      40.0,
		ParticipantWeight: 50.0,
		CommentWeight:     25.0,
		UpvoteWeight:      15.0,

		Gravity:     1.2,
		BaseHours:   2.0,
		MinAgeHours: 0.1,

		ExpiredPenalty: 10000.0,
		ClosedPenalty:  20000.0,
	}
}

// FundingSignals are the ranking inputs for a grant or fundraise entry.
// Participants counts applicants for grants and contributors for fundraises.
type FundingSignals struct {
	Amount          float64
	Participants    int
	Comments        int
	Upvotes         int
	AgeHours        float64
	HasOpen         bool
	EarliestOpenEnd *time.Time
}

// SortOption returns the status bucket for the signals at the given instant.
// An item is active while it has an open grant or fundraise whose earliest
// end date has not passed (or that has no end date at all).
func (s FundingSignals) SortOption(now time.Time) FundingSortOption {
	if !s.HasOpen {
		return FundingClosed
	}
	if s.EarliestOpenEnd == nil || !s.EarliestOpenEnd.Before(now) {
		return FundingActive
	}
	return FundingExpired
}

// FundScorer computes best scores for funding feed entries.
type FundScorer struct {
	cfg FundScoreConfig
}

// NewFundScorer creates a FundScorer with the given configuration.
func NewFundScorer(cfg FundScoreConfig) *FundScorer {
	return &FundScorer{cfg: cfg}
}

// Score computes the status-adjusted best score for the signals.
func (f *FundScorer) Score(s FundingSignals, now time.Time) float64 {
	age := math.Max(s.AgeHours, f.cfg.MinAgeHours)

	engagement := math.Log(s.Amount+1)*f.cfg.AmountWeight +
		math.Log(float64(s.Participants)+1)*f.cfg.ParticipantWeight +
		math.Log(float64(s.Comments)+1)*f.cfg.CommentWeight +
		math.Log(float64(s.Upvotes)+1)*f.cfg.UpvoteWeight

	score := engagement / math.Pow(age+f.cfg.BaseHours, f.cfg.Gravity) * 100

	switch s.SortOption(now) {
	case FundingExpired:
		score -= f.cfg.ExpiredPenalty
	case FundingClosed:
		score -= f.cfg.ClosedPenalty
	}
	return score
}

// ScoreEntry extracts funding signals from a feed entry and scores them.
func (f *FundScorer) ScoreEntry(entry *domain.FeedEntry, now time.Time) float64 {
	return f.Score(ExtractFundingSignals(entry, now), now)
}

// ExtractFundingSignals reads funding signals from a feed entry's JSON
// snapshots. Grants contribute their grant amount and applicant count;
// preregistrations contribute the amount raised and contributor count.
func ExtractFundingSignals(entry *domain.FeedEntry, now time.Time) FundingSignals {
	content := decodeObject(entry.Content)
	metrics := decodeObject(entry.Metrics)

	s := FundingSignals{
		Upvotes:  votesFromMetrics(metrics),
		Comments: commentCountFromMetrics(metrics),
		AgeHours: clampHours(now.Sub(entry.CreatedAt)),
	}
	if createdStr, _ := getNested(content, "created_date").(string); createdStr != "" {
		if created, ok := parseISOTime(createdStr); ok {
			s.AgeHours = clampHours(now.Sub(created))
		}
	}

	docType, _ := getNested(content, "type").(string)
	if docType == "" {
		docType = string(entry.ContentType)
	}

	var section map[string]interface{}
	switch docType {
	case string(domain.ContentTypeGrant):
		section, _ = getNested(content, "grant").(map[string]interface{})
		if section != nil {
			if amount, ok := asFloat(section["amount"]); ok {
				s.Amount = amount
			} else if usd, ok := asFloat(getNested(section, "amount", "usd")); ok {
				s.Amount = usd
			}
			if applicants, ok := getNested(section, "applicants").([]interface{}); ok {
				s.Participants = len(applicants)
			}
		}
	case string(domain.ContentTypePreregistration):
		section, _ = getNested(content, "fundraise").(map[string]interface{})
		s.Amount = fundraiseAmountFromContent(content)
		if contributors, ok := asInt(getNested(section, "contributors", "total")); ok {
			s.Participants = contributors
		}
	}

	if section != nil {
		status, _ := section["status"].(string)
		s.HasOpen = status == string(domain.FundingStatusOpen)
		if endStr, _ := section["end_date"].(string); endStr != "" {
			if end, ok := parseISOTime(endStr); ok {
				s.EarliestOpenEnd = &end
			}
		}
	}
	return s
}
