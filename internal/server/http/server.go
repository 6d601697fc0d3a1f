// Package httpserver provides the HTTP REST API for the platform service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/researchhub/platform-service/internal/database"
	"github.com/researchhub/platform-service/internal/domain"
	"github.com/researchhub/platform-service/internal/feed"
	"github.com/researchhub/platform-service/internal/observability"
	"github.com/researchhub/platform-service/internal/service"
)

// FeedService defines the feed operations the HTTP layer exposes.
type FeedService interface {
	ListFeed(ctx context.Context, req service.ListFeedRequest) (*domain.FeedPage, error)
	UpsertEntry(ctx context.Context, entry *domain.FeedEntry) (*domain.FeedEntry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*domain.FeedEntry, error)
	ScoreBreakdown(ctx context.Context, id uuid.UUID) (*feed.Breakdown, error)
	ListHubs(ctx context.Context) ([]*domain.Hub, error)
	UpsertHub(ctx context.Context, hub *domain.Hub) (*domain.Hub, error)
}

// ReputationService defines the reputation operations the HTTP layer exposes.
type ReputationService interface {
	RecordContribution(ctx context.Context, contribution domain.Contribution) (*domain.ScoreChange, error)
	VerifyAccount(ctx context.Context, userID uuid.UUID) (*domain.ScoreChange, error)
	GetUserReputation(ctx context.Context, userID uuid.UUID, recentLimit int) (*domain.UserReputation, error)
	ListScoreChanges(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ScoreChange, error)
}

// HealthChecker reports database health for the readiness endpoints.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

var (
	_ FeedService       = (*service.FeedService)(nil)
	_ ReputationService = (*service.ReputationService)(nil)
	_ HealthChecker     = (*database.DB)(nil)
)

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	feed           FeedService
	reputation     ReputationService
	db             HealthChecker
	logger         zerolog.Logger
	metrics        *observability.Metrics
	authMiddleware func(http.Handler) http.Handler
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
// A nil authMiddleware leaves the API routes unauthenticated.
func NewServer(
	cfg Config,
	feedSvc FeedService,
	reputationSvc ReputationService,
	db HealthChecker,
	logger zerolog.Logger,
	metrics *observability.Metrics,
	authMiddleware func(http.Handler) http.Handler,
) *Server {
	s := &Server{
		feed:           feedSvc,
		reputation:     reputationSvc,
		db:             db,
		logger:         logger.With().Str("component", "http-server").Logger(),
		metrics:        metrics,
		authMiddleware: authMiddleware,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)
	r.Use(s.metricsMiddleware)

	// Health endpoints (no auth)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		if s.authMiddleware != nil {
			r.Use(s.authMiddleware)
		}

		r.Get("/feed", s.listFeed)
		r.Post("/feed/entries", s.upsertFeedEntry)
		r.Get("/feed/entries/{entryID}", s.getFeedEntry)
		r.Get("/feed/entries/{entryID}/score", s.getScoreBreakdown)

		r.Get("/hubs", s.listHubs)
		r.Post("/hubs", s.upsertHub)

		r.Post("/contributions", s.recordContribution)
		r.Get("/users/{userID}/reputation", s.getUserReputation)
		r.Get("/users/{userID}/reputation/changes", s.listScoreChanges)
		r.Post("/users/{userID}/verify", s.verifyAccount)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}
