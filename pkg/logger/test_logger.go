package logger

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log messages so tests can assert on them.
// It is safe for use by concurrent download workers.
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	buffer   bytes.Buffer
	nop      zerolog.Logger
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{nop: zerolog.Nop()}
}

func (l *TestLogger) root() *scopedTestLogger {
	return &scopedTestLogger{sink: l}
}

func (l *TestLogger) Debug(msg string) { l.record("DEBUG", msg, nil, nil) }
func (l *TestLogger) Info(msg string)  { l.record("INFO", msg, nil, nil) }
func (l *TestLogger) Warn(msg string)  { l.record("WARN", msg, nil, nil) }
func (l *TestLogger) Error(msg string) { l.record("ERROR", msg, nil, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.record("DEBUG", msg, fields, nil)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.record("INFO", msg, fields, nil)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.record("WARN", msg, fields, nil)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.record("ERROR", msg, fields, nil)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.root().WithField(key, value)
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l.root().WithFields(fields)
}

func (l *TestLogger) WithError(err error) Logger {
	return l.root().WithError(err)
}

func (l *TestLogger) WithContext(ctx context.Context) Logger { return l }

func (l *TestLogger) GetZerolog() *zerolog.Logger { return &l.nop }

func (l *TestLogger) record(level, msg string, fields map[string]interface{}, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   err,
	})

	fmt.Fprintf(&l.buffer, "[%s] %s", level, msg)
	if len(fields) > 0 {
		fmt.Fprintf(&l.buffer, " fields=%v", fields)
	}
	if err != nil {
		fmt.Fprintf(&l.buffer, " error=%v", err)
	}
	l.buffer.WriteByte('\n')
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := make([]LogMessage, len(l.messages))
	copy(messages, l.messages)
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

// CountMessage returns how many times a message was logged
func (l *TestLogger) CountMessage(text string) int {
	n := 0
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			n++
		}
	}
	return n
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = nil
	l.buffer.Reset()
}

func (l *TestLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffer.String()
}

// scopedTestLogger carries fields and an error into the shared sink
type scopedTestLogger struct {
	sink   *TestLogger
	fields map[string]interface{}
	err    error
}

func (s *scopedTestLogger) merge(extra map[string]interface{}) map[string]interface{} {
	if len(s.fields) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(s.fields)+len(extra))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (s *scopedTestLogger) Debug(msg string) { s.sink.record("DEBUG", msg, s.merge(nil), s.err) }
func (s *scopedTestLogger) Info(msg string)  { s.sink.record("INFO", msg, s.merge(nil), s.err) }
func (s *scopedTestLogger) Warn(msg string)  { s.sink.record("WARN", msg, s.merge(nil), s.err) }
func (s *scopedTestLogger) Error(msg string) { s.sink.record("ERROR", msg, s.merge(nil), s.err) }

func (s *scopedTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	s.sink.record("DEBUG", msg, s.merge(fields), s.err)
}

func (s *scopedTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	s.sink.record("INFO", msg, s.merge(fields), s.err)
}

func (s *scopedTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	s.sink.record("WARN", msg, s.merge(fields), s.err)
}

func (s *scopedTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	s.sink.record("ERROR", msg, s.merge(fields), s.err)
}

func (s *scopedTestLogger) WithField(key string, value interface{}) Logger {
	return s.WithFields(map[string]interface{}{key: value})
}

func (s *scopedTestLogger) WithFields(fields map[string]interface{}) Logger {
	return &scopedTestLogger{sink: s.sink, fields: s.merge(fields), err: s.err}
}

func (s *scopedTestLogger) WithError(err error) Logger {
	return &scopedTestLogger{sink: s.sink, fields: s.fields, err: err}
}

func (s *scopedTestLogger) WithContext(ctx context.Context) Logger { return s }

func (s *scopedTestLogger) GetZerolog() *zerolog.Logger { return &s.sink.nop }
