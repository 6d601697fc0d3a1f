package observability

import (
	"fmt"

	"github.com/rs/zerolog"
)

// TemporalLogger adapts zerolog to Temporal's log.Logger interface so SDK
// output lands in the same stream, shape, and level scheme as service logs.
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger wraps logger with a "component":"temporal-sdk" field.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal-sdk").Logger()}
}

// Debug logs at debug level with the SDK's alternating key-value pairs.
func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	emit(l.logger.Debug(), msg, keyvals)
}

// Info logs at info level with the SDK's alternating key-value pairs.
func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	emit(l.logger.Info(), msg, keyvals)
}

// Warn logs at warn level with the SDK's alternating key-value pairs.
func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	emit(l.logger.Warn(), msg, keyvals)
}

// Error logs at error level with the SDK's alternating key-value pairs.
func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	emit(l.logger.Error(), msg, keyvals)
}

// emit folds the SDK's keyvals into the event. Error values go through AnErr
// so they serialize under the same "error" convention the rest of the service
// uses; everything else is attached as-is. A trailing key with no value is
// still logged rather than dropped.
func emit(evt *zerolog.Event, msg string, keyvals []interface{}) {
	n := len(keyvals)
	for i := 0; i+1 < n; i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		if err, ok := keyvals[i+1].(error); ok {
			evt = evt.AnErr(key, err)
			continue
		}
		evt = evt.Interface(key, keyvals[i+1])
	}
	if n%2 != 0 {
		evt = evt.Interface("orphaned_key", keyvals[n-1])
	}
	evt.Msg(msg)
}
