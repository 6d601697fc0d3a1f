package httpserver

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/researchhub/platform-service/internal/domain"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrBonusAlreadyGranted):
		writeError(w, http.StatusConflict, "verification bonus already granted")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Response types for JSON serialization.

type feedEntryResponse struct {
	ID          string          `json:"id"`
	ContentType string          `json:"content_type"`
	ItemID      string          `json:"item_id"`
	Action      string          `json:"action"`
	ActionDate  time.Time       `json:"action_date"`
	Content     json.RawMessage `json:"content,omitempty"`
	Metrics     json.RawMessage `json:"metrics,omitempty"`
	HotScore    int             `json:"hot_score"`
	Subcategory *string         `json:"subcategory,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	HubIDs      []string        `json:"hub_ids,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type feedPageResponse struct {
	Entries    []feedEntryResponse `json:"entries"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalCount int                 `json:"total_count"`
}

type hubResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Namespace   string  `json:"namespace,omitempty"`
	Subcategory *string `json:"subcategory,omitempty"`
}

type listHubsResponse struct {
	Hubs []hubResponse `json:"hubs"`
}

type scoreChangeResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Type            string    `json:"type"`
	Amount          float64   `json:"amount,omitempty"`
	Delta           int       `json:"delta"`
	TotalAfter      int       `json:"total_after"`
	ItemID          string    `json:"item_id,omitempty"`
	ItemContentType string    `json:"item_content_type,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type userReputationResponse struct {
	UserID   string                `json:"user_id"`
	Total    int                   `json:"total"`
	Verified bool                  `json:"verified"`
	Recent   []scoreChangeResponse `json:"recent_changes,omitempty"`
}

type listScoreChangesResponse struct {
	Changes []scoreChangeResponse `json:"changes"`
}

// Converter functions

func domainEntryToResponse(e *domain.FeedEntry) feedEntryResponse {
	resp := feedEntryResponse{
		ID:          e.ID.String(),
		ContentType: string(e.ContentType),
		ItemID:      e.ItemID.String(),
		Action:      string(e.Action),
		ActionDate:  e.ActionDate,
		Content:     json.RawMessage(e.Content),
		Metrics:     json.RawMessage(e.Metrics),
		HotScore:    e.HotScore,
		Subcategory: e.Subcategory,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.UserID != nil {
		resp.UserID = e.UserID.String()
	}
	if len(e.HubIDs) > 0 {
		resp.HubIDs = make([]string, len(e.HubIDs))
		for i, id := range e.HubIDs {
			resp.HubIDs[i] = id.String()
		}
	}
	return resp
}

func domainHubToResponse(h *domain.Hub) hubResponse {
	return hubResponse{
		ID:          h.ID.String(),
		Name:        h.Name,
		Slug:        h.Slug,
		Namespace:   h.Namespace,
		Subcategory: h.Subcategory,
	}
}

func domainScoreChangeToResponse(c *domain.ScoreChange) scoreChangeResponse {
	resp := scoreChangeResponse{
		ID:         c.ID.String(),
		UserID:     c.UserID.String(),
		Type:       string(c.Type),
		Amount:     c.Amount,
		Delta:      c.Delta,
		TotalAfter: c.TotalAfter,
		CreatedAt:  c.CreatedAt,
	}
	if c.ItemID != nil {
		resp.ItemID = c.ItemID.String()
	}
	if c.ItemContentType != nil {
		resp.ItemContentType = string(*c.ItemContentType)
	}
	return resp
}
