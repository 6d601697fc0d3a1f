//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := httpClient.Post(apiBaseURL+path, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth_E2E(t *testing.T) {
	resp, err := httpClient.Get(apiBaseURL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = httpClient.Get(apiBaseURL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeedLifecycle_E2E(t *testing.T) {
	// Step 1: Create a hub.
	resp := postJSON(t, "/api/v1/hubs", map[string]interface{}{
		"name":        "E2E Neuroscience",
		"slug":        fmt.Sprintf("e2e-neuroscience-%s", uuid.NewString()[:8]),
		"namespace":   "science",
		"subcategory": "neuroscience",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	hub := decodeBody(t, resp)
	hubID := hub["id"].(string)
	hubSlug := hub["slug"].(string)
	t.Logf("created hub: %s", hubID)

	// Step 2: Publish a paper entry into the hub.
	itemID := uuid.NewString()
	resp = postJSON(t, "/api/v1/feed/entries", map[string]interface{}{
		"content_type": "PAPER",
		"item_id":      itemID,
		"action":       "PUBLISH",
		"content":      map[string]interface{}{"title": "E2E Paper", "doi": "10.9999/e2e"},
		"metrics":      map[string]interface{}{"votes": 12, "altmetric_score": 40},
		"hub_ids":      []string{hubID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decodeBody(t, resp)
	entryID := entry["id"].(string)
	assert.NotEmpty(t, entryID)
	t.Logf("created entry: %s hot_score=%v", entryID, entry["hot_score"])

	// Step 3: The entry shows up in its hub's popular feed.
	getResp, err := httpClient.Get(fmt.Sprintf("%s/api/v1/feed?feed_view=popular&hub_slug=%s", apiBaseURL, hubSlug))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	page := decodeBody(t, getResp)
	entries := page["entries"].([]interface{})
	require.NotEmpty(t, entries, "published entry should appear in the hub feed")

	found := false
	for _, e := range entries {
		if e.(map[string]interface{})["id"] == entryID {
			found = true
		}
	}
	assert.True(t, found, "entry %s should be in the hub feed", entryID)

	// Step 4: The score breakdown explains the stored score.
	getResp, err = httpClient.Get(fmt.Sprintf("%s/api/v1/feed/entries/%s/score", apiBaseURL, entryID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	breakdown := decodeBody(t, getResp)
	assert.NotNil(t, breakdown["final_score"])
}

func TestReputationLifecycle_E2E(t *testing.T) {
	userID := uuid.NewString()

	// Step 1: A tip converts into reputation.
	resp := postJSON(t, "/api/v1/contributions", map[string]interface{}{
		"user_id": userID,
		"type":    "TIP_RECEIVED",
		"amount":  25,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	change := decodeBody(t, resp)
	assert.NotNil(t, change["delta"])

	// Step 2: Verification grants the one-time bonus.
	resp = postJSON(t, fmt.Sprintf("/api/v1/users/%s/verify", userID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Step 3: A second verification is rejected.
	resp = postJSON(t, fmt.Sprintf("/api/v1/users/%s/verify", userID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Step 4: The reputation summary reflects both changes.
	getResp, err := httpClient.Get(fmt.Sprintf("%s/api/v1/users/%s/reputation", apiBaseURL, userID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	rep := decodeBody(t, getResp)
	assert.Equal(t, true, rep["verified"])
	assert.NotEmpty(t, rep["recent_changes"])
}
