// Package openalex provides a client for the OpenAlex works API, used to
// refresh citation counts in feed entry metrics.
package openalex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/observability"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit in requests per second.
	// The polite pool (with mailto) allows 10 req/s sustained.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds response bodies against resource exhaustion.
	maxResponseBytes = 10 << 20

	// maxPerPage is the OpenAlex API page size limit.
	maxPerPage = 200

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string

	// Mailto is the contact email for the polite pool. Providing one grants
	// access to higher rate limits.
	Mailto string

	// APIKey is the OpenAlex premium API key (optional).
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client is a rate-limited OpenAlex API client with a circuit breaker.
// It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	metrics    *observability.Metrics
}

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "openalex",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		breaker:    breaker,
		metrics:    metrics,
	}
}

// GetWork retrieves a work by OpenAlex ID or DOI.
func (c *Client) GetWork(ctx context.Context, id string) (*Work, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "work ID is required")
	}

	fetchURL, err := c.buildGetWorkURL(id)
	if err != nil {
		return nil, fmt.Errorf("building work URL: %w", err)
	}

	resp, err := c.do(ctx, "get_work", fetchURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("work", id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
	}

	var work Work
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&work); err != nil {
		return nil, fmt.Errorf("decoding work: %w", err)
	}

	return &work, nil
}

// SearchWorks queries the works endpoint. The query matches titles,
// abstracts and full text server-side.
func (c *Client) SearchWorks(ctx context.Context, query string, perPage int) (*SearchResponse, error) {
	if query == "" {
		return nil, domain.NewValidationError("query", "search query is required")
	}
	if perPage <= 0 {
		perPage = 25
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	searchURL, err := c.buildSearchURL(query, perPage)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	resp, err := c.do(ctx, "search_works", searchURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return &searchResp, nil
}

// do executes one rate-limited request through the circuit breaker.
func (c *Client) do(ctx context.Context, endpoint, requestURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent())
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}
		// 5xx responses count as breaker failures.
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			resp.Body.Close()
			return nil, domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
		}
		return resp, nil
	})

	if c.metrics != nil {
		c.metrics.RecordEnrichmentRequest(endpoint, time.Since(start).Seconds())
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordEnrichmentFailed(endpoint, errorType(err))
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if c.metrics != nil {
			c.metrics.RecordEnrichmentRateLimited()
		}
		return nil, domain.NewRateLimitError("OpenAlex", retryAfter)
	}

	return resp, nil
}

// userAgent builds the polite-pool User-Agent header.
func (c *Client) userAgent() string {
	if c.config.Mailto != "" {
		return "ResearchHub-PlatformService/1.0 (mailto:" + c.config.Mailto + ")"
	}
	return "ResearchHub-PlatformService/1.0"
}

// buildGetWorkURL constructs the URL for fetching a work by ID or DOI.
func (c *Client) buildGetWorkURL(id string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	// OpenAlex accepts short IDs, full OpenAlex URLs, and DOIs in any of
	// their common spellings.
	var workID string
	switch {
	case strings.HasPrefix(id, openAlexIDPrefix):
		workID = strings.TrimPrefix(id, openAlexIDPrefix)
	case strings.HasPrefix(id, doiPrefix):
		workID = id
	case strings.HasPrefix(id, "10."):
		workID = doiPrefix + id
	case strings.HasPrefix(id, "doi:"):
		workID = doiPrefix + strings.TrimPrefix(id, "doi:")
	default:
		workID = id
	}

	baseURL.Path = "/works/" + workID

	if c.config.Mailto != "" {
		query := url.Values{}
		query.Set("mailto", c.config.Mailto)
		baseURL.RawQuery = query.Encode()
	}

	return baseURL.String(), nil
}

// buildSearchURL constructs the works search URL.
func (c *Client) buildSearchURL(search string, perPage int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}
	query.Set("search", search)
	query.Set("per_page", strconv.Itoa(perPage))
	if c.config.Mailto != "" {
		query.Set("mailto", c.config.Mailto)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// errorType buckets an error for the failure metric.
func errorType(err error) string {
	var apiErr *domain.ExternalAPIError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &apiErr):
		return "upstream"
	default:
		return "transport"
	}
}

// parseRetryAfter interprets a Retry-After header as seconds or HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}

// NormalizeDOI strips URL and scheme prefixes from DOIs and lowercases them.
func NormalizeDOI(doi string) string {
	if doi == "" {
		return ""
	}
	doi = strings.ToLower(strings.TrimSpace(doi))
	for {
		trimmed := strings.TrimPrefix(doi, doiPrefix)
		trimmed = strings.TrimPrefix(trimmed, "http://doi.org/")
		trimmed = strings.TrimPrefix(trimmed, "doi:")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == doi {
			return doi
		}
		doi = trimmed
	}
}
