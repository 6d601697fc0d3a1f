// Package reputation implements funding-based reputation scoring. Reputation
// is earned primarily through RSC flows (tips, bounty payouts, proposal
// funding) with small flat weights for engagement and content creation.
package reputation

import (
	"github.com/researchhub/platform-service/internal/domain"
)

// WeightConfig holds the tunables of the reputation weight system.
type WeightConfig struct {
	// VerifiedAccountBonus is the one-time award for account verification.
	VerifiedAccountBonus int `mapstructure:"verified_account_bonus"`
	// FunderBonusMultiplier rewards giving RSC over receiving it.
	FunderBonusMultiplier float64 `mapstructure:"funder_bonus_multiplier"`
	// TieredScoringEnabled gates the RSC curves; when off, RSC flows score
	// zero and only flat weights apply.
	TieredScoringEnabled bool `mapstructure:"tiered_scoring_enabled"`
	// Overrides replaces the flat weight for specific contribution types.
	Overrides map[string]int `mapstructure:"overrides"`
}

// DefaultWeightConfig returns the production weight constants.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		VerifiedAccountBonus:  100,
		FunderBonusMultiplier: 1.5,
		TieredScoringEnabled:  true,
	}
}

// Flat weights for engagement. Content creation is kept near zero so spam
// cannot farm reputation.
var baseWeights = map[domain.ContributionType]int{
	domain.ContributionUpvote:   1,
	domain.ContributionDownvote: -1,
}

var contentCreationWeights = map[domain.ContributionType]int{
	domain.ContributionBountyCreated:  5,
	domain.ContributionBountyFunded:   5,
	domain.ContributionPostCreated:    2,
	domain.ContributionPaperPublished: 2,
	domain.ContributionThreadCreated:  1,
	domain.ContributionComment:        0,
	domain.ContributionPeerReview:     0,
	domain.ContributionBountySolution: 0,
	domain.ContributionCitation:       0,
}

// Calculator converts contributions into reputation deltas.
type Calculator struct {
	cfg WeightConfig
}

// NewCalculator creates a Calculator with the given configuration.
func NewCalculator(cfg WeightConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the calculator's configuration.
func (c *Calculator) Config() WeightConfig {
	return c.cfg
}

// TipReputation converts a tip amount into reputation using tiered generous
// scaling: the first 10 RSC convert 1:1, the next 40 at 0.75, the next 50 at
// 0.6 and the remainder at 0.55.
func (c *Calculator) TipReputation(amount float64) int {
	if amount <= 0 {
		return 0
	}
	if amount <= 10 {
		return int(amount)
	}

	rep := 10.0
	remaining := amount - 10

	if remaining <= 40 {
		return int(rep + remaining*0.75)
	}
	rep += 40 * 0.75
	remaining -= 40

	if remaining <= 50 {
		return int(rep + remaining*0.6)
	}
	rep += 50 * 0.6
	remaining -= 50

	return int(rep + remaining*0.55)
}

// BountyReputation converts a bounty payout into reputation using generous
// tiered linear scaling. Bounty payouts are manually reviewed, so the curve
// is steeper than tips.
func (c *Calculator) BountyReputation(amount float64) int {
	switch {
	case amount <= 0:
		return 0
	case amount < 200:
		return int(amount * 0.33)
	case amount < 1000:
		return int(50 + (amount-200)*0.3)
	default:
		return int(50 + 240 + (amount-1000)*0.25)
	}
}

// ProposalReputation converts a proposal amount into reputation using
// logarithmic tiers so that mega-proposals cannot dominate: the first 1000
// RSC at 0.1, the next 99k at 0.01, the next 900k at 0.001 and the remainder
// at 0.0001. Funders get the funder bonus multiplier.
func (c *Calculator) ProposalReputation(amount float64, funder bool) int {
	if amount <= 0 {
		return 0
	}

	multiplier := 1.0
	if funder {
		multiplier = c.cfg.FunderBonusMultiplier
	}

	tiers := []struct {
		size float64
		rate float64
	}{
		{1000, 0.1},
		{99000, 0.01},
		{900000, 0.001},
	}

	rep := 0.0
	remaining := amount
	for _, tier := range tiers {
		step := remaining
		if step > tier.size {
			step = tier.size
		}
		rep += step * tier.rate
		remaining -= step
		if remaining <= 0 {
			return int(rep * multiplier)
		}
	}
	rep += remaining * 0.0001
	return int(rep * multiplier)
}

// FromRSC dispatches an RSC amount to the curve for its contribution type.
// Unknown types convert to zero.
func (c *Calculator) FromRSC(t domain.ContributionType, amount float64) int {
	switch t {
	case domain.ContributionTipReceived:
		return c.TipReputation(amount)
	case domain.ContributionBountyPayout:
		return c.BountyReputation(amount)
	case domain.ContributionProposalFunded:
		return c.ProposalReputation(amount, false)
	case domain.ContributionProposalFundingGift:
		return c.ProposalReputation(amount, true)
	default:
		return 0
	}
}

// FlatWeight returns the flat reputation change for non-RSC contributions,
// honoring per-type overrides.
func (c *Calculator) FlatWeight(t domain.ContributionType) int {
	if w, ok := c.cfg.Overrides[string(t)]; ok {
		return w
	}
	if w, ok := baseWeights[t]; ok {
		return w
	}
	if w, ok := contentCreationWeights[t]; ok {
		return w
	}
	return 0
}

// Delta computes the reputation delta for a contribution.
func (c *Calculator) Delta(contribution domain.Contribution) int {
	switch contribution.Type {
	case domain.ContributionTipReceived,
		domain.ContributionBountyPayout,
		domain.ContributionProposalFunded,
		domain.ContributionProposalFundingGift:
		if !c.cfg.TieredScoringEnabled {
			return 0
		}
		t := contribution.Type
		if contribution.Funder && t == domain.ContributionProposalFunded {
			t = domain.ContributionProposalFundingGift
		}
		return c.FromRSC(t, contribution.Amount)
	case domain.ContributionVerifiedAccount:
		return c.cfg.VerifiedAccountBonus
	default:
		return c.FlatWeight(contribution.Type)
	}
}
