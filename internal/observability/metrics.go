package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the platform service.
// Metrics are organized by subsystem: HTTP, feed ranking, reputation,
// outbox, and external enrichment. All counters and histograms are
// registered via promauto for automatic registration with the default
// Prometheus registry.
type Metrics struct {
	// HTTPRequestsTotal counts HTTP requests, labeled by method, route, and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// FeedRequestsTotal counts feed listing requests, labeled by feed view.
	FeedRequestsTotal *prometheus.CounterVec

	// FeedEntriesReturned observes the number of entries returned per feed request.
	FeedEntriesReturned prometheus.Histogram

	// HotScoresComputed counts hot score computations, labeled by content type.
	HotScoresComputed *prometheus.CounterVec

	// FundScoresComputed counts funding score computations.
	FundScoresComputed prometheus.Counter

	// ScoreRefreshBatches counts score refresh batches processed.
	ScoreRefreshBatches prometheus.Counter

	// ScoreRefreshEntries counts entries rescored by the background refresh.
	ScoreRefreshEntries prometheus.Counter

	// ScoreRefreshDuration observes the duration of one refresh batch in seconds.
	ScoreRefreshDuration prometheus.Histogram

	// DiversificationPasses counts diversification passes applied to feed pages.
	DiversificationPasses prometheus.Counter

	// DiversificationDeferred observes the number of entries deferred per pass.
	DiversificationDeferred prometheus.Histogram

	// ContributionsRecorded counts reputation contributions, labeled by contribution type.
	ContributionsRecorded *prometheus.CounterVec

	// ContributionsRejected counts rejected contributions, labeled by reason.
	ContributionsRejected *prometheus.CounterVec

	// ReputationAwarded counts total reputation points awarded (positive deltas).
	ReputationAwarded prometheus.Counter

	// ReputationPenalized counts total reputation points removed (negative deltas).
	ReputationPenalized prometheus.Counter

	// OutboxEventsPublished counts outbox events published, labeled by event type.
	OutboxEventsPublished *prometheus.CounterVec

	// OutboxEventsFailed counts outbox publish failures, labeled by event type.
	OutboxEventsFailed *prometheus.CounterVec

	// OutboxEventsDeadLettered counts events moved to the dead letter state.
	OutboxEventsDeadLettered prometheus.Counter

	// OutboxPendingEvents gauges the number of events awaiting publication.
	OutboxPendingEvents prometheus.Gauge

	// EnrichmentRequestsTotal counts requests to the enrichment API, labeled by endpoint.
	EnrichmentRequestsTotal *prometheus.CounterVec

	// EnrichmentRequestsFailed counts failed enrichment requests, labeled by endpoint and error type.
	EnrichmentRequestsFailed *prometheus.CounterVec

	// EnrichmentRequestDuration observes enrichment request duration in seconds, labeled by endpoint.
	EnrichmentRequestDuration *prometheus.HistogramVec

	// EnrichmentRateLimited counts rate-limited responses from the enrichment API.
	EnrichmentRateLimited prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		// Feed
		FeedRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Total number of feed listing requests by view",
		}, []string{"view"}),
		FeedEntriesReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_entries_returned",
			Help:      "Number of entries returned per feed request",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		HotScoresComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hot_scores_computed_total",
			Help:      "Total number of hot score computations by content type",
		}, []string{"content_type"}),
		FundScoresComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fund_scores_computed_total",
			Help:      "Total number of funding score computations",
		}),
		ScoreRefreshBatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_refresh_batches_total",
			Help:      "Total number of score refresh batches processed",
		}),
		ScoreRefreshEntries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_refresh_entries_total",
			Help:      "Total number of entries rescored by the background refresh",
		}),
		ScoreRefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_refresh_duration_seconds",
			Help:      "Duration of score refresh batches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		DiversificationPasses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diversification_passes_total",
			Help:      "Total number of diversification passes applied",
		}),
		DiversificationDeferred: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diversification_deferred_entries",
			Help:      "Number of entries deferred per diversification pass",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),

		// Reputation
		ContributionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_recorded_total",
			Help:      "Total number of contributions recorded by type",
		}, []string{"type"}),
		ContributionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_rejected_total",
			Help:      "Total number of contributions rejected by reason",
		}, []string{"reason"}),
		ReputationAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reputation_awarded_total",
			Help:      "Total reputation points awarded",
		}),
		ReputationPenalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reputation_penalized_total",
			Help:      "Total reputation points removed",
		}),

		// Outbox
		OutboxEventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_published_total",
			Help:      "Total number of outbox events published by event type",
		}, []string{"event_type"}),
		OutboxEventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of outbox publish failures by event type",
		}, []string{"event_type"}),
		OutboxEventsDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_dead_lettered_total",
			Help:      "Total number of outbox events moved to the dead letter state",
		}),
		OutboxPendingEvents: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending_events",
			Help:      "Number of outbox events awaiting publication",
		}),

		// Enrichment
		EnrichmentRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_total",
			Help:      "Total number of requests to the enrichment API",
		}, []string{"endpoint"}),
		EnrichmentRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_failed_total",
			Help:      "Total number of failed enrichment requests",
		}, []string{"endpoint", "error_type"}),
		EnrichmentRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_request_duration_seconds",
			Help:      "Duration of enrichment requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		EnrichmentRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_rate_limited_total",
			Help:      "Total number of rate limit responses from the enrichment API",
		}),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordFeedRequest records a feed listing request.
func (m *Metrics) RecordFeedRequest(view string, entryCount int) {
	m.FeedRequestsTotal.WithLabelValues(view).Inc()
	m.FeedEntriesReturned.Observe(float64(entryCount))
}

// RecordHotScore records one hot score computation.
func (m *Metrics) RecordHotScore(contentType string) {
	m.HotScoresComputed.WithLabelValues(contentType).Inc()
}

// RecordFundScore records one funding score computation.
func (m *Metrics) RecordFundScore() {
	m.FundScoresComputed.Inc()
}

// RecordScoreRefreshBatch records one completed score refresh batch.
func (m *Metrics) RecordScoreRefreshBatch(entryCount int, durationSeconds float64) {
	m.ScoreRefreshBatches.Inc()
	m.ScoreRefreshEntries.Add(float64(entryCount))
	m.ScoreRefreshDuration.Observe(durationSeconds)
}

// RecordDiversificationPass records one diversification pass.
func (m *Metrics) RecordDiversificationPass(deferredCount int) {
	m.DiversificationPasses.Inc()
	m.DiversificationDeferred.Observe(float64(deferredCount))
}

// RecordContribution records a contribution and its reputation delta.
func (m *Metrics) RecordContribution(contributionType string, delta int) {
	m.ContributionsRecorded.WithLabelValues(contributionType).Inc()
	if delta >= 0 {
		m.ReputationAwarded.Add(float64(delta))
	} else {
		m.ReputationPenalized.Add(float64(-delta))
	}
}

// RecordContributionRejected records a rejected contribution.
func (m *Metrics) RecordContributionRejected(reason string) {
	m.ContributionsRejected.WithLabelValues(reason).Inc()
}

// RecordOutboxPublished records a successfully published outbox event.
func (m *Metrics) RecordOutboxPublished(eventType string) {
	m.OutboxEventsPublished.WithLabelValues(eventType).Inc()
}

// RecordOutboxFailed records a failed outbox publish attempt.
func (m *Metrics) RecordOutboxFailed(eventType string) {
	m.OutboxEventsFailed.WithLabelValues(eventType).Inc()
}

// RecordOutboxDeadLettered records an event moved to the dead letter state.
func (m *Metrics) RecordOutboxDeadLettered() {
	m.OutboxEventsDeadLettered.Inc()
}

// SetOutboxPending sets the pending outbox event gauge.
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPendingEvents.Set(float64(count))
}

// RecordEnrichmentRequest records a request to the enrichment API.
func (m *Metrics) RecordEnrichmentRequest(endpoint string, durationSeconds float64) {
	m.EnrichmentRequestsTotal.WithLabelValues(endpoint).Inc()
	m.EnrichmentRequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordEnrichmentFailed records a failed enrichment request.
func (m *Metrics) RecordEnrichmentFailed(endpoint, errorType string) {
	m.EnrichmentRequestsFailed.WithLabelValues(endpoint, errorType).Inc()
}

// RecordEnrichmentRateLimited records a rate limit response.
func (m *Metrics) RecordEnrichmentRateLimited() {
	m.EnrichmentRateLimited.Inc()
}
