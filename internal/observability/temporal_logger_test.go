package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturedTemporalLogger() (*TemporalLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewTemporalLogger(zerolog.New(&buf)), &buf
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestTemporalLogger_ComponentField(t *testing.T) {
	tl, buf := newCapturedTemporalLogger()

	tl.Info("worker started")

	line := decodeLogLine(t, buf)
	assert.Equal(t, "temporal-sdk", line["component"])
	assert.Equal(t, "worker started", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestTemporalLogger_Keyvals(t *testing.T) {
	t.Run("folds pairs into fields", func(t *testing.T) {
		tl, buf := newCapturedTemporalLogger()

		tl.Debug("activity scheduled", "ActivityType", "RecomputeBatch", "Attempt", 1)

		line := decodeLogLine(t, buf)
		assert.Equal(t, "RecomputeBatch", line["ActivityType"])
		assert.Equal(t, float64(1), line["Attempt"])
	})

	t.Run("error values use the error convention", func(t *testing.T) {
		tl, buf := newCapturedTemporalLogger()

		tl.Error("activity failed", "Error", errors.New("connection refused"))

		line := decodeLogLine(t, buf)
		assert.Equal(t, "connection refused", line["Error"])
		assert.Equal(t, "error", line["level"])
	})

	t.Run("non-string keys are stringified", func(t *testing.T) {
		tl, buf := newCapturedTemporalLogger()

		tl.Warn("odd key", 42, "value")

		line := decodeLogLine(t, buf)
		assert.Equal(t, "value", line["42"])
	})

	t.Run("trailing key without a value is kept", func(t *testing.T) {
		tl, buf := newCapturedTemporalLogger()

		tl.Info("dangling", "WorkflowID", "score-refresh", "orphan")

		line := decodeLogLine(t, buf)
		assert.Equal(t, "score-refresh", line["WorkflowID"])
		assert.Equal(t, "orphan", line["orphaned_key"])
	})
}
