package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogCollectProgress logs one scroll-and-scan attempt
func LogCollectProgress(l Logger, attempt, found, stall int) {
	l.DebugWithFields("Collection attempt", map[string]interface{}{
		"attempt": attempt,
		"found":   found,
		"stall":   stall,
	})
}

// LogDownload logs the outcome of one item
func LogDownload(l Logger, url, status string, elapsed time.Duration, reason string) {
	fields := map[string]interface{}{
		"url":     url,
		"status":  status,
		"elapsed": elapsed,
	}

	switch status {
	case "succeeded":
		l.InfoWithFields("Download completed", fields)
	case "timed_out":
		l.WarnWithFields("Download timed out", fields)
	default:
		fields["reason"] = reason
		l.WarnWithFields("Download failed", fields)
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l = l.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Debug("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Debug("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
