package feed

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/researchhub/platform-service/internal/domain"
)

// SignalWeight configures one engagement signal. Each signal contributes
// log(raw+1, LogBase) * Weight to the engagement score.
type SignalWeight struct {
	Weight  float64 `mapstructure:"weight"`
	LogBase float64 `mapstructure:"log_base"`
}

// HotScoreConfig holds every tunable of the hot score formula.
type HotScoreConfig struct {
	Altmetric  SignalWeight `mapstructure:"altmetric"`
	Bounty     SignalWeight `mapstructure:"bounty"`
	Tip        SignalWeight `mapstructure:"tip"`
	PeerReview SignalWeight `mapstructure:"peer_review"`
	Upvote     SignalWeight `mapstructure:"upvote"`
	Comment    SignalWeight `mapstructure:"comment"`

	Gravity   float64 `mapstructure:"gravity"`
	BaseHours float64 `mapstructure:"base_hours"`

	FreshnessMultiplier  float64 `mapstructure:"freshness_multiplier"`
	FreshnessWindowHours float64 `mapstructure:"freshness_window_hours"`

	BountyUrgencyMultiplier float64 `mapstructure:"bounty_urgency_multiplier"`
	BountyUrgencyHours      int     `mapstructure:"bounty_urgency_hours"`
	GrantUrgencyDays        int     `mapstructure:"grant_urgency_days"`
	PreregUrgencyDays       int     `mapstructure:"prereg_urgency_days"`
}

// DefaultHotScoreConfig returns the production scoring constants.
func DefaultHotScoreConfig() HotScoreConfig {
	return HotScoreConfig{
		Altmetric:  SignalWeight{Weight: 1.0, LogBase: math.E},
		Bounty:     SignalWeight{Weight: 3.0, LogBase: math.E},
		Tip:        SignalWeight{Weight: 2.0, LogBase: math.E},
		PeerReview: SignalWeight{Weight: 5.0, LogBase: math.E},
		Upvote:     SignalWeight{Weight: 4.0, LogBase: math.E},
		Comment:    SignalWeight{Weight: 3.0, LogBase: math.E},

		Gravity:   1.8,
		BaseHours: 2.0,

		FreshnessMultiplier:  4.5,
		FreshnessWindowHours: 48,

		BountyUrgencyMultiplier: 1.5,
		BountyUrgencyHours:      48,
		GrantUrgencyDays:        7,
		PreregUrgencyDays:       7,
	}
}

// BountyUrgencyWindow returns the bounty urgency window as a duration.
func (c HotScoreConfig) BountyUrgencyWindow() time.Duration {
	return time.Duration(c.BountyUrgencyHours) * time.Hour
}

// GrantUrgencyWindow returns the grant deadline urgency window as a duration.
func (c HotScoreConfig) GrantUrgencyWindow() time.Duration {
	return time.Duration(c.GrantUrgencyDays) * 24 * time.Hour
}

// PreregUrgencyWindow returns the preregistration deadline urgency window as a duration.
func (c HotScoreConfig) PreregUrgencyWindow() time.Duration {
	return time.Duration(c.PreregUrgencyDays) * 24 * time.Hour
}

// Components holds the weighted log contribution of each signal.
type Components struct {
	Altmetric  float64 `json:"altmetric"`
	Bounty     float64 `json:"bounty"`
	Tip        float64 `json:"tip"`
	PeerReview float64 `json:"peer_review"`
	Upvote     float64 `json:"upvote"`
	Comment    float64 `json:"comment"`
}

// Sum returns the total engagement score.
func (c Components) Sum() float64 {
	return c.Altmetric + c.Bounty + c.Tip + c.PeerReview + c.Upvote + c.Comment
}

// TimeFactors holds the time-dependent inputs to the score.
type TimeFactors struct {
	AgeHours            float64 `json:"age_hours"`
	BaseHours           float64 `json:"base_hours"`
	Gravity             float64 `json:"gravity"`
	FreshnessMultiplier float64 `json:"freshness_multiplier"`
}

// Breakdown is a full account of one hot score computation, suitable for the
// score explanation API.
type Breakdown struct {
	Signals          Signals     `json:"raw_signals"`
	Components       Components  `json:"components"`
	BountyUrgent     bool        `json:"bounty_urgent"`
	BountyMultiplier float64     `json:"bounty_multiplier"`
	TimeFactors      TimeFactors `json:"time_factors"`
	EngagementScore  float64     `json:"engagement_score"`
	AdjustedScore    float64     `json:"adjusted_engagement"`
	TimeDenominator  float64     `json:"time_denominator"`
	RawScore         float64     `json:"raw_score"`
	FinalScore       int         `json:"final_score"`
	Equation         string      `json:"equation"`
	Steps            []string    `json:"steps"`
}

// HotScorer computes hot scores for feed entries.
type HotScorer struct {
	cfg HotScoreConfig
}

// NewHotScorer creates a HotScorer with the given configuration.
func NewHotScorer(cfg HotScoreConfig) *HotScorer {
	return &HotScorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *HotScorer) Config() HotScoreConfig {
	return s.cfg
}

// Score computes the hot score for a feed entry at the given instant.
func (s *HotScorer) Score(entry *domain.FeedEntry, now time.Time) int {
	return s.Breakdown(entry, now).FinalScore
}

// Breakdown computes the hot score along with every intermediate value.
func (s *HotScorer) Breakdown(entry *domain.FeedEntry, now time.Time) *Breakdown {
	sig := ExtractSignals(entry, now, s.cfg)

	bountyMultiplier := 1.0
	if sig.BountyUrgent {
		bountyMultiplier = s.cfg.BountyUrgencyMultiplier
	}

	comps := Components{
		Altmetric:  logComponent(sig.Altmetric, s.cfg.Altmetric),
		Bounty:     logComponent(sig.BountyAmount, s.cfg.Bounty) * bountyMultiplier,
		Tip:        logComponent(sig.Tips, s.cfg.Tip),
		PeerReview: logComponent(float64(sig.PeerReviews), s.cfg.PeerReview),
		Upvote:     logComponent(float64(sig.Upvotes), s.cfg.Upvote),
		Comment:    logComponent(float64(sig.Comments), s.cfg.Comment),
	}

	freshness := 1.0
	if sig.AgeHours < s.cfg.FreshnessWindowHours {
		freshness = s.cfg.FreshnessMultiplier
	}

	engagement := comps.Sum()
	adjusted := engagement * freshness
	denominator := math.Pow(sig.AgeHours+s.cfg.BaseHours, s.cfg.Gravity)
	raw := adjusted / denominator
	final := int(raw * 100)

	b := &Breakdown{
		Signals:          sig,
		Components:       comps,
		BountyUrgent:     sig.BountyUrgent,
		BountyMultiplier: bountyMultiplier,
		TimeFactors: TimeFactors{
			AgeHours:            sig.AgeHours,
			BaseHours:           s.cfg.BaseHours,
			Gravity:             s.cfg.Gravity,
			FreshnessMultiplier: freshness,
		},
		EngagementScore: engagement,
		AdjustedScore:   adjusted,
		TimeDenominator: denominator,
		RawScore:        raw,
		FinalScore:      final,
	}
	b.Equation = b.formatEquation()
	b.Steps = b.formatSteps()
	return b
}

func logComponent(raw float64, w SignalWeight) float64 {
	if raw <= 0 {
		return 0
	}
	value := math.Log(raw + 1)
	if w.LogBase > 1 && w.LogBase != math.E {
		value /= math.Log(w.LogBase)
	}
	return value * w.Weight
}

func (b *Breakdown) formatEquation() string {
	c := b.Components
	return fmt.Sprintf(
		"((%.1f + %.1f + %.1f + %.1f + %.1f + %.1f) * %.2f) / (%.1f + %g)^%g * 100 = %d",
		c.Altmetric, c.Bounty, c.Tip, c.PeerReview, c.Upvote, c.Comment,
		b.TimeFactors.FreshnessMultiplier,
		b.TimeFactors.AgeHours, b.TimeFactors.BaseHours, b.TimeFactors.Gravity,
		b.FinalScore,
	)
}

func (b *Breakdown) formatSteps() []string {
	var sb []string
	sb = append(sb, "Engagement Components:")

	type line struct {
		name string
		raw  float64
		comp float64
	}
	lines := []line{
		{"altmetric", b.Signals.Altmetric, b.Components.Altmetric},
		{"bounty", b.Signals.BountyAmount, b.Components.Bounty},
		{"tip", b.Signals.Tips, b.Components.Tip},
		{"peer_review", float64(b.Signals.PeerReviews), b.Components.PeerReview},
		{"upvote", float64(b.Signals.Upvotes), b.Components.Upvote},
		{"comment", float64(b.Signals.Comments), b.Components.Comment},
	}
	for _, l := range lines {
		suffix := ""
		if l.name == "bounty" && b.BountyUrgent {
			suffix = fmt.Sprintf(" * %.1f (URGENT)", b.BountyMultiplier)
		}
		sb = append(sb, fmt.Sprintf("  %-12s ln(%g + 1)%s = %.1f", l.name, l.raw, suffix, l.comp))
	}

	sb = append(sb,
		"",
		fmt.Sprintf("Engagement Score = %.1f", b.EngagementScore),
		fmt.Sprintf("Freshness Boost = %.2fx", b.TimeFactors.FreshnessMultiplier),
		fmt.Sprintf("Adjusted = %.1f", b.AdjustedScore),
		fmt.Sprintf("Time Decay = (%.1f + %g)^%g = %.1f", b.TimeFactors.AgeHours, b.TimeFactors.BaseHours, b.TimeFactors.Gravity, b.TimeDenominator),
		fmt.Sprintf("Raw = %.2f", b.RawScore),
		fmt.Sprintf("Final = int(%.2f * 100) = %d", b.RawScore, b.FinalScore),
	)
	return sb
}

// String renders the step-by-step breakdown as one block of text.
func (b *Breakdown) String() string {
	return strings.Join(b.Steps, "\n")
}
