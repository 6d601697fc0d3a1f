// Package domain provides domain models and business logic for the ResearchHub Platform Service.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContentType identifies the kind of document a feed entry points at.
// These values must match the database enum content_type.
type ContentType string

const (
	ContentTypePaper           ContentType = "PAPER"
	ContentTypePost            ContentType = "POST"
	ContentTypeQuestion        ContentType = "QUESTION"
	ContentTypePreregistration ContentType = "PREREGISTRATION"
	ContentTypeGrant           ContentType = "GRANT"
	ContentTypeBounty          ContentType = "BOUNTY"
	ContentTypeComment         ContentType = "COMMENT"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypePaper, ContentTypePost, ContentTypeQuestion,
		ContentTypePreregistration, ContentTypeGrant, ContentTypeBounty,
		ContentTypeComment:
		return true
	default:
		return false
	}
}

// FeedAction represents the action that produced a feed entry.
// These values must match the database enum feed_action.
type FeedAction string

const (
	FeedActionOpen    FeedAction = "OPEN"
	FeedActionPublish FeedAction = "PUBLISH"
)

// Valid reports whether a is a known feed action.
func (a FeedAction) Valid() bool {
	switch a {
	case FeedActionOpen, FeedActionPublish:
		return true
	default:
		return false
	}
}

// FeedView selects the ordering applied to a feed listing.
type FeedView string

const (
	FeedViewPopular FeedView = "popular"
	FeedViewLatest  FeedView = "latest"
	FeedViewFunding FeedView = "funding"
)

// Valid reports whether v is a known feed view.
func (v FeedView) Valid() bool {
	switch v {
	case FeedViewPopular, FeedViewLatest, FeedViewFunding:
		return true
	default:
		return false
	}
}

// BountyStatus represents the lifecycle state of a bounty attached to a document.
type BountyStatus string

const (
	BountyStatusOpen      BountyStatus = "OPEN"
	BountyStatusClosed    BountyStatus = "CLOSED"
	BountyStatusExpired   BountyStatus = "EXPIRED"
	BountyStatusCancelled BountyStatus = "CANCELLED"
)

// FundingStatus represents the lifecycle state of a grant or fundraise.
type FundingStatus string

const (
	FundingStatusOpen      FundingStatus = "OPEN"
	FundingStatusClosed    FundingStatus = "CLOSED"
	FundingStatusCompleted FundingStatus = "COMPLETED"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s FundingStatus) IsTerminal() bool {
	switch s {
	case FundingStatusClosed, FundingStatusCompleted:
		return true
	default:
		return false
	}
}

// FeedEntry is a denormalized record of a unified document surfaced in the feed.
// Content holds a snapshot of the document serialization and Metrics holds the
// engagement counters; both are opaque JSON and may be sparse or stale, so all
// readers must tolerate missing and malformed fields.
type FeedEntry struct {
	ID          uuid.UUID
	ContentType ContentType
	ItemID      uuid.UUID
	Action      FeedAction
	ActionDate  time.Time
	Content     json.RawMessage
	Metrics     json.RawMessage
	HotScore    int
	Subcategory *string
	UserID      *uuid.UUID
	HubIDs      []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubcategoryKey returns the diversification grouping key for the entry.
// Entries without a subcategory form a single group of their own.
func (e *FeedEntry) SubcategoryKey() string {
	if e.Subcategory == nil {
		return ""
	}
	return *e.Subcategory
}

// Hub is a topic grouping for documents, analogous to a journal or community.
type Hub struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Namespace   string
	Subcategory *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FeedPage is one page of feed results plus the total match count.
type FeedPage struct {
	Entries []*FeedEntry
	Total   int
}
