// Package observability provides logging, metrics, and context propagation
// for the platform service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for feed ranking, reputation, and the outbox
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("entry_id", entryID).Msg("hot score refreshed")
//
// Add request context to logger:
//
//	logger = observability.WithRequestContext(logger, requestID, method, route)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("platform_service")
//
// Record metrics:
//
//	metrics.RecordFeedRequest("popular", len(entries))
//	metrics.RecordHotScore("PAPER")
//	metrics.RecordContribution("TIP_RECEIVED", delta)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithUserID(ctx, userID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	userID := observability.UserIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - user_id: Authenticated user identifier
//   - entry_id: Feed entry identifier
//   - content_type: Feed entry content type (PAPER, POST, GRANT, ...)
//   - view: Feed view (popular, latest, funding)
//   - workflow_id: Temporal workflow identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
