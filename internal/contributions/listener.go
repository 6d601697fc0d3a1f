// Package contributions provides a Kafka listener that consumes contribution
// events emitted by upstream services and records them as reputation changes.
package contributions

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/researchhub/platform-service/internal/domain"
)

// ContributionEvent is the wire format for contribution events. User and item
// identifiers arrive as strings because upstream producers are not Go services.
type ContributionEvent struct {
	UserID          string  `json:"user_id"`
	Type            string  `json:"type"`
	Amount          float64 `json:"amount"`
	Funder          bool    `json:"funder"`
	ItemID          string  `json:"item_id"`
	ItemContentType string  `json:"item_content_type"`
}

// Recorder records a contribution against a user's reputation.
type Recorder interface {
	RecordContribution(ctx context.Context, contribution domain.Contribution) (*domain.ScoreChange, error)
}

// Listener consumes contribution events from Kafka and applies them through
// the reputation service.
type Listener struct {
	reader   *kafka.Reader
	recorder Recorder
	logger   zerolog.Logger
}

// Config holds configuration for the contribution listener.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for contribution events.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// NewListener creates a new contribution event listener.
func NewListener(cfg Config, recorder Recorder, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})

	return &Listener{
		reader:   reader,
		recorder: recorder,
		logger:   logger.With().Str("component", "contribution_listener").Logger(),
	}
}

// Run starts the listener loop. Blocks until context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting contribution listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("contribution listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received contribution event")

		var event ContributionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.logger.Error().Err(err).
				Str("raw_value", string(msg.Value)).
				Msg("failed to unmarshal contribution event")
			continue
		}

		if err := l.handleContribution(ctx, event); err != nil {
			l.logger.Error().Err(err).
				Str("user_id", event.UserID).
				Str("type", event.Type).
				Msg("failed to handle contribution event")
		}
	}
}

// handleContribution converts an event into a domain contribution and records
// it. Malformed events and duplicate one-time bonuses are dropped rather than
// retried; the broker offset has already moved past them.
func (l *Listener) handleContribution(ctx context.Context, event ContributionEvent) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		l.logger.Warn().
			Str("user_id", event.UserID).
			Str("type", event.Type).
			Msg("dropping contribution event with invalid user ID")
		return nil
	}

	contribution := domain.Contribution{
		UserID: userID,
		Type:   domain.ContributionType(event.Type),
		Amount: event.Amount,
		Funder: event.Funder,
	}

	if event.ItemID != "" {
		itemID, err := uuid.Parse(event.ItemID)
		if err != nil {
			l.logger.Warn().
				Str("item_id", event.ItemID).
				Msg("dropping contribution event with invalid item ID")
			return nil
		}
		contribution.ItemID = &itemID
		if event.ItemContentType != "" {
			contentType := domain.ContentType(event.ItemContentType)
			contribution.ContentType = &contentType
		}
	}

	change, err := l.recorder.RecordContribution(ctx, contribution)
	if err != nil {
		if errors.Is(err, domain.ErrBonusAlreadyGranted) {
			l.logger.Debug().
				Str("user_id", event.UserID).
				Msg("verified bonus already granted, dropping duplicate event")
			return nil
		}
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			l.logger.Warn().Err(err).
				Str("user_id", event.UserID).
				Str("type", event.Type).
				Msg("dropping invalid contribution event")
			return nil
		}
		return err
	}

	l.logger.Info().
		Str("user_id", change.UserID.String()).
		Str("type", string(change.Type)).
		Int("delta", change.Delta).
		Msg("recorded contribution from event")

	return nil
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing contribution listener")
	return l.reader.Close()
}
