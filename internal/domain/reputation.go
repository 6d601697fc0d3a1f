package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContributionType identifies the kind of activity being rewarded with
// reputation. These values must match the database enum contribution_type.
type ContributionType string

const (
	// RSC flows.
	ContributionTipReceived         ContributionType = "TIP_RECEIVED"
	ContributionBountyPayout        ContributionType = "BOUNTY_PAYOUT"
	ContributionProposalFunded      ContributionType = "PROPOSAL_FUNDED"
	ContributionProposalFundingGift ContributionType = "PROPOSAL_FUNDING_CONTRIBUTION"

	// Engagement.
	ContributionUpvote   ContributionType = "UPVOTE"
	ContributionDownvote ContributionType = "DOWNVOTE"
	ContributionCitation ContributionType = "CITATION"

	// Content creation.
	ContributionComment        ContributionType = "COMMENT"
	ContributionThreadCreated  ContributionType = "THREAD_CREATED"
	ContributionPostCreated    ContributionType = "POST_CREATED"
	ContributionBountyCreated  ContributionType = "BOUNTY_CREATED"
	ContributionBountySolution ContributionType = "BOUNTY_SOLUTION"
	ContributionBountyFunded   ContributionType = "BOUNTY_FUNDED"
	ContributionPeerReview     ContributionType = "PEER_REVIEW"
	ContributionPaperPublished ContributionType = "PAPER_PUBLISHED"

	// Account lifecycle.
	ContributionVerifiedAccount ContributionType = "VERIFIED_ACCOUNT"
	ContributionDeletionPenalty ContributionType = "DELETION_PENALTY"
)

// AllContributionTypes lists every recognized contribution type.
var AllContributionTypes = []ContributionType{
	ContributionTipReceived,
	ContributionBountyPayout,
	ContributionProposalFunded,
	ContributionProposalFundingGift,
	ContributionUpvote,
	ContributionDownvote,
	ContributionCitation,
	ContributionComment,
	ContributionThreadCreated,
	ContributionPostCreated,
	ContributionBountyCreated,
	ContributionBountySolution,
	ContributionBountyFunded,
	ContributionPeerReview,
	ContributionPaperPublished,
	ContributionVerifiedAccount,
	ContributionDeletionPenalty,
}

// Valid reports whether t is a recognized contribution type.
func (t ContributionType) Valid() bool {
	for _, known := range AllContributionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Contribution is a single rewardable activity by a user. Amount carries the
// RSC value for amount-based contribution types and is ignored for flat ones.
// Funder marks proposal contributions made by the proposal's funder.
type Contribution struct {
	UserID      uuid.UUID
	Type        ContributionType
	Amount      float64
	Funder      bool
	ItemID      *uuid.UUID
	ContentType *ContentType
}

// ScoreChange records one applied reputation delta.
type ScoreChange struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Type            ContributionType
	Amount          float64
	Delta           int
	TotalAfter      int
	ItemID          *uuid.UUID
	ItemContentType *ContentType
	CreatedAt       time.Time
}

// UserReputation is a user's current total plus recent score changes.
type UserReputation struct {
	UserID   uuid.UUID
	Total    int
	Verified bool
	Recent   []*ScoreChange
}
