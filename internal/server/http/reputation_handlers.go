package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/researchhub/platform-service/internal/domain"
)

// Reputation listing bounds.
const (
	defaultRecentChanges = 10
	defaultChangesLimit  = 50
	maxChangesLimit      = 100
)

// recordContributionRequest is the JSON request body for recording a contribution.
// Amounts above 1e9 RSC are rejected as implausible.
type recordContributionRequest struct {
	UserID      string  `json:"user_id" validate:"required,uuid"`
	Type        string  `json:"type" validate:"required,contributiontype"`
	Amount      float64 `json:"amount,omitempty" validate:"gte=0,lte=1000000000"`
	Funder      bool    `json:"funder,omitempty"`
	ItemID      *string `json:"item_id,omitempty" validate:"omitempty,uuid"`
	ContentType *string `json:"content_type,omitempty" validate:"omitempty,contenttype"`
}

// recordContribution handles POST /contributions.
// It converts the contribution into a reputation delta and applies it.
func (s *Server) recordContribution(w http.ResponseWriter, r *http.Request) {
	var req recordContributionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	userID, ok := parseUUID(w, req.UserID, "user_id")
	if !ok {
		return
	}

	contribution := domain.Contribution{
		UserID: userID,
		Type:   domain.ContributionType(req.Type),
		Amount: req.Amount,
		Funder: req.Funder,
	}
	if req.ItemID != nil {
		itemID, ok := parseUUID(w, *req.ItemID, "item_id")
		if !ok {
			return
		}
		contribution.ItemID = &itemID
	}
	if req.ContentType != nil {
		contentType := domain.ContentType(*req.ContentType)
		contribution.ContentType = &contentType
	}

	change, err := s.reputation.RecordContribution(r.Context(), contribution)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainScoreChangeToResponse(change))
}

// verifyAccount handles POST /users/{userID}/verify.
// The verification bonus is one-time; repeats return 409.
func (s *Server) verifyAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUID(w, chi.URLParam(r, "userID"), "user_id")
	if !ok {
		return
	}

	change, err := s.reputation.VerifyAccount(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainScoreChangeToResponse(change))
}

// getUserReputation handles GET /users/{userID}/reputation.
func (s *Server) getUserReputation(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUID(w, chi.URLParam(r, "userID"), "user_id")
	if !ok {
		return
	}

	recentLimit, ok := parsePositiveIntParam(w, r.URL.Query().Get("recent_limit"), "recent_limit")
	if !ok {
		return
	}
	if recentLimit == 0 {
		recentLimit = defaultRecentChanges
	}

	reputation, err := s.reputation.GetUserReputation(r.Context(), userID, recentLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := userReputationResponse{
		UserID:   reputation.UserID.String(),
		Total:    reputation.Total,
		Verified: reputation.Verified,
	}
	if len(reputation.Recent) > 0 {
		resp.Recent = make([]scoreChangeResponse, len(reputation.Recent))
		for i, change := range reputation.Recent {
			resp.Recent[i] = domainScoreChangeToResponse(change)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// listScoreChanges handles GET /users/{userID}/reputation/changes.
// Query parameters: page, page_size.
func (s *Server) listScoreChanges(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUID(w, chi.URLParam(r, "userID"), "user_id")
	if !ok {
		return
	}

	query := r.URL.Query()
	page, ok := parsePositiveIntParam(w, query.Get("page"), "page")
	if !ok {
		return
	}
	if page == 0 {
		page = 1
	}
	limit, ok := parsePositiveIntParam(w, query.Get("page_size"), "page_size")
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultChangesLimit
	}
	if limit > maxChangesLimit {
		limit = maxChangesLimit
	}

	changes, err := s.reputation.ListScoreChanges(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := listScoreChangesResponse{Changes: make([]scoreChangeResponse, len(changes))}
	for i, change := range changes {
		resp.Changes[i] = domainScoreChangeToResponse(change)
	}
	writeJSON(w, http.StatusOK, resp)
}
