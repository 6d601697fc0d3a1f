// Package feed implements feed entry ranking: hot score computation from
// denormalized JSON snapshots, funding best-score ranking, and subcategory
// diversification of score-ordered results.
package feed

import (
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/researchhub/platform-service/internal/domain"
)

// Signals holds the raw engagement numbers extracted from a feed entry's
// content and metrics JSON. Extraction never fails: missing keys, wrong
// types, and malformed values all read as zero.
type Signals struct {
	Altmetric    float64
	BountyAmount float64
	BountyUrgent bool
	Tips         float64
	PeerReviews  int
	Upvotes      int
	Comments     int
	AgeHours     float64
}

func decodeObject(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// getNested walks a path of keys through nested JSON objects, returning nil
// as soon as a key is missing or an intermediate value is not an object.
func getNested(data map[string]interface{}, keys ...string) interface{} {
	var current interface{} = data
	for _, key := range keys {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = obj[key]
		if current == nil {
			return nil
		}
	}
	return current
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v interface{}) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// parseISOTime parses the ISO 8601 timestamps found in content snapshots.
// Naive timestamps are interpreted as UTC.
func parseISOTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func votesFromMetrics(metrics map[string]interface{}) int {
	n, ok := asInt(getNested(metrics, "votes"))
	if !ok || n < 0 {
		return 0
	}
	return n
}

func peerReviewCountFromMetrics(metrics map[string]interface{}) int {
	n, ok := asInt(getNested(metrics, "review_metrics", "count"))
	if !ok || n < 0 {
		return 0
	}
	return n
}

// commentCountFromMetrics returns replies minus peer reviews, floored at
// zero. Reviews are stored as replies in the metrics rollup and must not be
// double counted.
func commentCountFromMetrics(metrics map[string]interface{}) int {
	replies, ok := asInt(getNested(metrics, "replies"))
	if !ok {
		return 0
	}
	count := replies - peerReviewCountFromMetrics(metrics)
	if count < 0 {
		return 0
	}
	return count
}

func altmetricFromMetrics(metrics map[string]interface{}) float64 {
	f, ok := asFloat(getNested(metrics, "altmetric_score"))
	if !ok || f < 0 {
		return 0
	}
	return f
}

// bountiesFromContent sums OPEN bounty amounts and reports whether any open
// bounty is urgent. A bounty is urgent when the entry itself is younger than
// the urgency window or the bounty expires within it. Bounty snapshots carry
// no creation date, so the entry's creation date stands in for it.
func bountiesFromContent(content map[string]interface{}, entryCreated, now time.Time, urgencyWindow time.Duration) (float64, bool) {
	list, ok := getNested(content, "bounties").([]interface{})
	if !ok {
		return 0, false
	}

	var total float64
	urgent := false

	for _, item := range list {
		bounty, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if status, _ := bounty["status"].(string); status != string(domain.BountyStatusOpen) {
			continue
		}
		amount, ok := asFloat(bounty["amount"])
		if !ok {
			continue
		}
		total += amount

		if now.Sub(entryCreated) < urgencyWindow {
			urgent = true
			continue
		}
		if expStr, _ := bounty["expiration_date"].(string); expStr != "" {
			if exp, ok := parseISOTime(expStr); ok && exp.Sub(now) < urgencyWindow {
				urgent = true
			}
		}
	}
	return total, urgent
}

// tipsFromContent sums purchase amounts recorded on the document snapshot.
func tipsFromContent(content map[string]interface{}) float64 {
	list, ok := getNested(content, "purchases").([]interface{})
	if !ok {
		return 0
	}

	var total float64
	for _, item := range list {
		purchase, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if amount, ok := asFloat(purchase["amount"]); ok {
			total += amount
		}
	}
	return total
}

// fundraiseAmountFromContent reads the amount raised, preferring RSC over USD.
func fundraiseAmountFromContent(content map[string]interface{}) float64 {
	if rsc, ok := asFloat(getNested(content, "fundraise", "amount_raised", "rsc")); ok {
		return rsc
	}
	if usd, ok := asFloat(getNested(content, "fundraise", "amount_raised", "usd")); ok {
		return usd
	}
	return 0
}

// ageHoursFromContent computes the entry age in hours. Grants and
// preregistrations approaching their deadline are made to look newer: once
// the deadline is inside the urgency window, age is measured from the
// deadline minus the window instead of the creation date, so the entry decays
// as if it were freshly posted.
func ageHoursFromContent(content map[string]interface{}, entryCreated, now time.Time, grantWindow, preregWindow time.Duration) float64 {
	if content != nil {
		docType, _ := getNested(content, "type").(string)

		if docType == string(domain.ContentTypeGrant) {
			if age, ok := deadlineAdjustedAge(getNested(content, "grant", "end_date"), now, grantWindow); ok {
				return age
			}
		}
		if docType == string(domain.ContentTypePreregistration) {
			if age, ok := deadlineAdjustedAge(getNested(content, "fundraise", "end_date"), now, preregWindow); ok {
				return age
			}
		}

		if createdStr, _ := getNested(content, "created_date").(string); createdStr != "" {
			if created, ok := parseISOTime(createdStr); ok {
				return clampHours(now.Sub(created))
			}
		}
	}
	return clampHours(now.Sub(entryCreated))
}

func deadlineAdjustedAge(endDateVal interface{}, now time.Time, window time.Duration) (float64, bool) {
	endStr, _ := endDateVal.(string)
	if endStr == "" {
		return 0, false
	}
	end, ok := parseISOTime(endStr)
	if !ok {
		return 0, false
	}
	untilDeadline := end.Sub(now)
	if untilDeadline <= 0 || untilDeadline >= window {
		return 0, false
	}
	return clampHours(now.Sub(end) + window), true
}

func clampHours(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Hours()
}

// ExtractSignals reads all ranking signals from a feed entry. Fundraise
// amounts on preregistrations count as tips.
func ExtractSignals(entry *domain.FeedEntry, now time.Time, cfg HotScoreConfig) Signals {
	content := decodeObject(entry.Content)
	metrics := decodeObject(entry.Metrics)

	bountyAmount, bountyUrgent := bountiesFromContent(content, entry.CreatedAt, now, cfg.BountyUrgencyWindow())

	tips := tipsFromContent(content)
	docType, _ := getNested(content, "type").(string)
	if docType == string(domain.ContentTypePreregistration) || entry.ContentType == domain.ContentTypePreregistration {
		tips += fundraiseAmountFromContent(content)
	}

	return Signals{
		Altmetric:    altmetricFromMetrics(metrics),
		BountyAmount: bountyAmount,
		BountyUrgent: bountyUrgent,
		Tips:         tips,
		PeerReviews:  peerReviewCountFromMetrics(metrics),
		Upvotes:      votesFromMetrics(metrics),
		Comments:     commentCountFromMetrics(metrics),
		AgeHours:     ageHoursFromContent(content, entry.CreatedAt, now, cfg.GrantUrgencyWindow(), cfg.PreregUrgencyWindow()),
	}
}
