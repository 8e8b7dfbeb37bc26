package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// LogLevel is the severity of a log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// LogField is a single structured key/value pair attached to an entry
type LogField struct {
	Key   string
	Value interface{}
}

// LogEntry is the JSON shape written per line
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Logger is the structured logging interface used across the services.
// With returns a child logger whose fields are attached to every entry.
type Logger interface {
	Debug(msg string, fields ...LogField)
	Info(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, err error, fields ...LogField)
	With(fields ...LogField) Logger
}

// StructuredLogger writes one JSON object per line to its output
type StructuredLogger struct {
	level      LogLevel
	output     io.Writer
	baseFields map[string]interface{}
}

// NewStructuredLogger creates a logger filtering below the given level.
// A nil output defaults to stdout.
func NewStructuredLogger(level LogLevel, output io.Writer) *StructuredLogger {
	if output == nil {
		output = os.Stdout
	}

	return &StructuredLogger{
		level:      level,
		output:     output,
		baseFields: make(map[string]interface{}),
	}
}

// NewDefaultLogger creates an info-level logger on stdout
func NewDefaultLogger() *StructuredLogger {
	return NewStructuredLogger(LogLevelInfo, os.Stdout)
}

func (l *StructuredLogger) Debug(msg string, fields ...LogField) {
	if l.shouldLog(LogLevelDebug) {
		l.log(LogLevelDebug, msg, nil, fields...)
	}
}

func (l *StructuredLogger) Info(msg string, fields ...LogField) {
	if l.shouldLog(LogLevelInfo) {
		l.log(LogLevelInfo, msg, nil, fields...)
	}
}

func (l *StructuredLogger) Warn(msg string, fields ...LogField) {
	if l.shouldLog(LogLevelWarn) {
		l.log(LogLevelWarn, msg, nil, fields...)
	}
}

func (l *StructuredLogger) Error(msg string, err error, fields ...LogField) {
	if l.shouldLog(LogLevelError) {
		l.log(LogLevelError, msg, err, fields...)
	}
}

// With returns a child logger carrying the given fields on every entry.
// The receiver is not modified.
func (l *StructuredLogger) With(fields ...LogField) Logger {
	merged := make(map[string]interface{}, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}

	return &StructuredLogger{
		level:      l.level,
		output:     l.output,
		baseFields: merged,
	}
}

func (l *StructuredLogger) log(level LogLevel, msg string, err error, fields ...LogField) {
	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   msg,
		Fields:    make(map[string]interface{}),
	}

	for k, v := range l.baseFields {
		entry.Fields[k] = v
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	if err != nil {
		entry.Error = err.Error()
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// A field value that json can't encode must not lose the message
		log.Printf("Failed to marshal log entry: %v", marshalErr)
		log.Printf("[%s] %s: %s", level, msg, err)
		return
	}

	fmt.Fprintln(l.output, string(data))
}

func (l *StructuredLogger) shouldLog(level LogLevel) bool {
	threshold, ok := levelRank[l.level]
	if !ok {
		threshold = levelRank[LogLevelInfo]
	}
	return levelRank[level] >= threshold
}

// Field creates a log field of any value type
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// String field helper
func String(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// Int field helper
func Int(key string, value int) LogField {
	return LogField{Key: key, Value: value}
}

// Int64 field helper
func Int64(key string, value int64) LogField {
	return LogField{Key: key, Value: value}
}

// Float64 field helper
func Float64(key string, value float64) LogField {
	return LogField{Key: key, Value: value}
}

// Bool field helper
func Bool(key string, value bool) LogField {
	return LogField{Key: key, Value: value}
}

// Duration renders the value as its string form ("250ms", "1m30s")
func Duration(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}

// ParseLogLevel maps a config string to a level, defaulting to info
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
