package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	json "github.com/goccy/go-json"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/service"
)

// maxRequestBodySize bounds request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// upsertEntryRequest is the JSON request body for creating or updating a feed entry.
type upsertEntryRequest struct {
	ContentType string          `json:"content_type" validate:"required,contenttype"`
	ItemID      string          `json:"item_id" validate:"required,uuid"`
	Action      string          `json:"action" validate:"omitempty,feedaction"`
	ActionDate  *time.Time      `json:"action_date,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	Metrics     json.RawMessage `json:"metrics,omitempty"`
	Subcategory *string         `json:"subcategory,omitempty"`
	UserID      *string         `json:"user_id,omitempty" validate:"omitempty,uuid"`
	HubIDs      []string        `json:"hub_ids,omitempty" validate:"dive,uuid"`
}

// upsertHubRequest is the JSON request body for creating or updating a hub.
type upsertHubRequest struct {
	ID          *string `json:"id,omitempty" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required"`
	Slug        string  `json:"slug" validate:"required"`
	Namespace   string  `json:"namespace,omitempty"`
	Subcategory *string `json:"subcategory,omitempty"`
}

// listFeed handles GET /feed.
// Query parameters: feed_view, hub_slug, diversify, page, page_size.
func (s *Server) listFeed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	view := domain.FeedView(query.Get("feed_view"))
	if view == "" {
		view = domain.FeedViewPopular
	}
	if !view.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown feed_view: %s", view))
		return
	}

	req := service.ListFeedRequest{
		View:    view,
		HubSlug: strings.TrimSpace(query.Get("hub_slug")),
	}

	if diversifyParam := query.Get("diversify"); diversifyParam != "" {
		diversify, err := strconv.ParseBool(diversifyParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "diversify must be a boolean")
			return
		}
		req.Diversify = diversify
	}

	var ok bool
	if req.Page, ok = parsePositiveIntParam(w, query.Get("page"), "page"); !ok {
		return
	}
	if req.PageSize, ok = parsePositiveIntParam(w, query.Get("page_size"), "page_size"); !ok {
		return
	}

	page, err := s.feed.ListFeed(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]feedEntryResponse, len(page.Entries))
	for i, entry := range page.Entries {
		entries[i] = domainEntryToResponse(entry)
	}

	pageNum := req.Page
	if pageNum <= 0 {
		pageNum = 1
	}
	writeJSON(w, http.StatusOK, feedPageResponse{
		Entries:    entries,
		Page:       pageNum,
		PageSize:   len(entries),
		TotalCount: page.Total,
	})
}

// upsertFeedEntry handles POST /feed/entries.
// The entry is scored on write and an outbox event is recorded alongside it.
func (s *Server) upsertFeedEntry(w http.ResponseWriter, r *http.Request) {
	var req upsertEntryRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	itemID, ok := parseUUID(w, req.ItemID, "item_id")
	if !ok {
		return
	}

	action := domain.FeedActionPublish
	if req.Action != "" {
		action = domain.FeedAction(req.Action)
	}

	entry := &domain.FeedEntry{
		ContentType: domain.ContentType(req.ContentType),
		ItemID:      itemID,
		Action:      action,
		ActionDate:  time.Now().UTC(),
		Content:     []byte(req.Content),
		Metrics:     []byte(req.Metrics),
		Subcategory: req.Subcategory,
	}
	if req.ActionDate != nil {
		entry.ActionDate = req.ActionDate.UTC()
	}
	if req.UserID != nil {
		userID, ok := parseUUID(w, *req.UserID, "user_id")
		if !ok {
			return
		}
		entry.UserID = &userID
	}
	if len(req.HubIDs) > 0 {
		entry.HubIDs = make([]uuid.UUID, len(req.HubIDs))
		for i, raw := range req.HubIDs {
			hubID, ok := parseUUID(w, raw, "hub_ids")
			if !ok {
				return
			}
			entry.HubIDs[i] = hubID
		}
	}

	stored, err := s.feed.UpsertEntry(r.Context(), entry)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainEntryToResponse(stored))
}

// getFeedEntry handles GET /feed/entries/{entryID}.
func (s *Server) getFeedEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := parseUUID(w, chi.URLParam(r, "entryID"), "entry_id")
	if !ok {
		return
	}

	entry, err := s.feed.GetEntry(r.Context(), entryID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainEntryToResponse(entry))
}

// getScoreBreakdown handles GET /feed/entries/{entryID}/score.
// It explains the entry's hot score component by component.
func (s *Server) getScoreBreakdown(w http.ResponseWriter, r *http.Request) {
	entryID, ok := parseUUID(w, chi.URLParam(r, "entryID"), "entry_id")
	if !ok {
		return
	}

	breakdown, err := s.feed.ScoreBreakdown(r.Context(), entryID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, breakdown)
}

// listHubs handles GET /hubs.
func (s *Server) listHubs(w http.ResponseWriter, r *http.Request) {
	hubs, err := s.feed.ListHubs(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := listHubsResponse{Hubs: make([]hubResponse, len(hubs))}
	for i, hub := range hubs {
		resp.Hubs[i] = domainHubToResponse(hub)
	}
	writeJSON(w, http.StatusOK, resp)
}

// upsertHub handles POST /hubs.
func (s *Server) upsertHub(w http.ResponseWriter, r *http.Request) {
	var req upsertHubRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	if !validateRequest(w, &req) {
		return
	}

	hub := &domain.Hub{
		Name:        req.Name,
		Slug:        req.Slug,
		Namespace:   req.Namespace,
		Subcategory: req.Subcategory,
	}
	if req.ID != nil {
		hubID, ok := parseUUID(w, *req.ID, "id")
		if !ok {
			return
		}
		hub.ID = hubID
	}

	stored, err := s.feed.UpsertHub(r.Context(), hub)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainHubToResponse(stored))
}

// decodeRequest reads and unmarshals a JSON request body, writing a 400 error
// on failure. Returns true on success.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePositiveIntParam parses an optional positive integer query parameter.
// An empty value yields zero, letting the service apply its defaults.
func parsePositiveIntParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return parsed, true
}
