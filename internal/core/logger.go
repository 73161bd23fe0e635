// Package core holds cross-cutting primitives shared by every pipeline
// stage: structured logging and the error taxonomy from spec §7.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Logger is the minimal structured-logging interface every component
// depends on. Components never import a concrete logging library directly.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger lets a stage tag its log lines with a component name
// (e.g. "stage/sightings", "client/ebird") without threading the name
// through every call site.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// NoOpLogger discards everything. Used as the zero-value default so nil
// checks never have to litter call sites.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}
func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) WithComponent(string) Logger                                      { return NoOpLogger{} }

// Level controls SimpleLogger's verbosity threshold.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// SimpleLogger is a stdlib-backed structured logger: one JSON line per
// call on the standard logger, which is exactly what the teacher's
// pkg/logger.SimpleLogger does for non-JSON fields. No third-party
// structured logging library appears in the example pack for this role.
type SimpleLogger struct {
	level     Level
	component string
	out       *log.Logger
}

// NewSimpleLogger creates a logger writing to stderr at InfoLevel.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		level: InfoLevel,
		out:   log.New(os.Stderr, "", 0),
	}
}

// SetLevel adjusts the verbosity threshold.
func (l *SimpleLogger) SetLevel(level Level) {
	l.level = level
}

func (l *SimpleLogger) WithComponent(component string) Logger {
	return &SimpleLogger{level: l.level, component: component, out: l.out}
}

func (l *SimpleLogger) log(level Level, levelName, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     levelName,
		"message":   msg,
	}
	if l.component != "" {
		entry["component"] = l.component
	}
	for k, v := range fields {
		entry[k] = v
	}
	line, err := json.Marshal(entry)
	if err != nil {
		l.out.Printf("%s %s (unmarshalable fields: %v)", levelName, msg, err)
		return
	}
	l.out.Println(string(line))
}

func (l *SimpleLogger) Info(msg string, fields map[string]interface{})  { l.log(InfoLevel, "INFO", msg, fields) }
func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) { l.log(ErrorLevel, "ERROR", msg, fields) }
func (l *SimpleLogger) Warn(msg string, fields map[string]interface{})  { l.log(WarnLevel, "WARN", msg, fields) }
func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) { l.log(DebugLevel, "DEBUG", msg, fields) }

func (l *SimpleLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(InfoLevel, "INFO", msg, withTraceID(ctx, fields))
}
func (l *SimpleLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ErrorLevel, "ERROR", msg, withTraceID(ctx, fields))
}
func (l *SimpleLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(WarnLevel, "WARN", msg, withTraceID(ctx, fields))
}
func (l *SimpleLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(DebugLevel, "DEBUG", msg, withTraceID(ctx, fields))
}

func withTraceID(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if runID, ok := ctx.Value(runIDKey{}).(string); ok {
		out["run_id"] = runID
	}
	return out
}

type runIDKey struct{}

// WithRunID attaches a pipeline run identifier to ctx so every subsequent
// log line in that run carries it automatically.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the run ID set by WithRunID, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok
}

var _ fmt.Stringer = Level(0)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}
