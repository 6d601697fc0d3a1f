package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithRequestID(ctx, "req-123")

		result := RequestIDFromContext(ctx)
		assert.Equal(t, "req-123", result)
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		result := RequestIDFromContext(ctx)
		assert.Equal(t, "", result)
	})
}

func TestUserIDContext(t *testing.T) {
	t.Run("stores and retrieves user ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithUserID(ctx, "user-456")

		assert.Equal(t, "user-456", UserIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, "", UserIDFromContext(ctx))
	})
}

func TestEntryIDContext(t *testing.T) {
	t.Run("stores and retrieves entry ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithEntryID(ctx, "entry-789")

		assert.Equal(t, "entry-789", EntryIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, "", EntryIDFromContext(ctx))
	})
}

func TestWorkflowContext(t *testing.T) {
	t.Run("stores and retrieves workflow and run IDs", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithWorkflow(ctx, "wf-123", "run-456")

		workflowID, runID := WorkflowFromContext(ctx)
		assert.Equal(t, "wf-123", workflowID)
		assert.Equal(t, "run-456", runID)
	})

	t.Run("returns empty strings when not set", func(t *testing.T) {
		ctx := context.Background()
		workflowID, runID := WorkflowFromContext(ctx)
		assert.Equal(t, "", workflowID)
		assert.Equal(t, "", runID)
	})
}

func TestRequestContextFull(t *testing.T) {
	t.Run("stores and retrieves full request context", func(t *testing.T) {
		ctx := context.Background()
		rc := RequestContext{
			RequestID:  "req-123",
			UserID:     "user-456",
			EntryID:    "entry-789",
			WorkflowID: "wf-123",
			RunID:      "run-456",
		}

		ctx = WithRequestContextFull(ctx, rc)
		result := RequestContextFromContext(ctx)

		assert.Equal(t, rc.RequestID, result.RequestID)
		assert.Equal(t, rc.UserID, result.UserID)
		assert.Equal(t, rc.EntryID, result.EntryID)
		assert.Equal(t, rc.WorkflowID, result.WorkflowID)
		assert.Equal(t, rc.RunID, result.RunID)
	})

	t.Run("handles partial context", func(t *testing.T) {
		ctx := context.Background()
		rc := RequestContext{
			RequestID: "req-only",
		}

		ctx = WithRequestContextFull(ctx, rc)
		result := RequestContextFromContext(ctx)

		assert.Equal(t, "req-only", result.RequestID)
		assert.Equal(t, "", result.UserID)
		assert.Equal(t, "", result.EntryID)
	})

	t.Run("returns empty context when nothing set", func(t *testing.T) {
		ctx := context.Background()
		result := RequestContextFromContext(ctx)

		assert.Equal(t, RequestContext{}, result)
	})
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()

	// Chain multiple context additions
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithEntryID(ctx, "entry-1")
	ctx = WithWorkflow(ctx, "wf-1", "run-1")

	// All values should be retrievable
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "user-1", UserIDFromContext(ctx))
	assert.Equal(t, "entry-1", EntryIDFromContext(ctx))

	workflowID, runID := WorkflowFromContext(ctx)
	assert.Equal(t, "wf-1", workflowID)
	assert.Equal(t, "run-1", runID)
}

func TestContextOverwrite(t *testing.T) {
	ctx := context.Background()

	// Set initial values
	ctx = WithRequestID(ctx, "req-1")

	// Overwrite with new values
	ctx = WithRequestID(ctx, "req-2")

	// Should have new value
	assert.Equal(t, "req-2", RequestIDFromContext(ctx))
}
