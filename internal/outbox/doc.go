// Package outbox implements the transactional outbox pattern for publishing
// platform service events.
//
// # Overview
//
// Events are written to the outbox_events table in the same database
// transaction as the state change they describe, then the Processor claims
// pending rows and publishes them to Kafka. Delivery is at-least-once;
// consumers must deduplicate on event_id.
//
// # Components
//
//   - Emitter: Builds outbox events from domain state with consistent
//     aggregate types and payload shapes
//   - Publisher: Sends claimed events to Kafka (or drops them when Kafka
//     publishing is disabled)
//   - Processor: Polls for pending events, publishes them, and retries or
//     dead-letters failures
//
// # Event Types
//
// The service publishes events for feed and reputation state changes:
//
//   - feed.entry_created: A new feed entry was created
//   - feed.entry_updated: A feed entry was rescored or its snapshot replaced
//   - feed.scores_refreshed: A background score refresh run completed
//   - reputation.awarded: A user gained reputation
//   - reputation.penalized: A user lost reputation
//
// # Usage
//
// Build an event and insert it inside the transaction that changes state:
//
//	emitter := outbox.NewEmitter("platform-service")
//	event, err := emitter.EmitFeedEntryCreated(entry)
//	if err != nil {
//	    return err
//	}
//	if err := outboxRepo.Insert(ctx, event); err != nil {
//	    return err
//	}
//
// Run the processor alongside the server to drain the table:
//
//	processor := outbox.NewProcessor(outboxRepo, publisher, cfg, logger, metrics)
//	go processor.Run(ctx)
package outbox
