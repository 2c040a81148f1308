package logger

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

type sink struct {
	mu       sync.Mutex
	messages []LogMessage
}

// TestLogger captures every message for assertions. Child loggers from
// WithField/WithError share the parent's sink.
type TestLogger struct {
	sink   *sink
	fields map[string]interface{}
	err    error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &sink{}}
}

func (l *TestLogger) log(level, msg string, extra map[string]interface{}) {
	var fields map[string]interface{}
	if len(l.fields)+len(extra) > 0 {
		fields = l.merge(extra)
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.messages = append(l.sink.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   l.err,
	})
}

func (l *TestLogger) merge(extra map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

func (l *TestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	l.log("FATAL", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &TestLogger{sink: l.sink, fields: l.merge(fields), err: l.err}
}

func (l *TestLogger) WithError(err error) Logger {
	return &TestLogger{sink: l.sink, fields: l.fields, err: err}
}

func (l *TestLogger) WithContext(ctx context.Context) Logger {
	return l
}

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

// GetMessages returns a copy of all captured messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	messages := make([]LogMessage, len(l.sink.messages))
	copy(messages, l.sink.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// Clear drops all captured messages
func (l *TestLogger) Clear() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.messages = nil
}
