// Package logging is the default internal/ports.Logger adapter, backed by
// github.com/rs/zerolog. Grounded on
// alexisbeaulieu97-Streamy/internal/infrastructure/logging.Logger (same
// Options/New/With shape, same field-merge discipline) with the backend
// swapped for zerolog per SPEC_FULL.md's ambient-stack decision to put the
// teacher's otherwise-unused zerolog dependency to work, and the level
// vocabulary narrowed to the three-way CONSTELLATION_DEBUG setting
// (off/errors/full) SPEC_FULL.md §1 names instead of a free-form level
// string.
package logging

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/alexisbeaulieu97/constellation/internal/ports"
)

// DebugSetting is the three-way verbosity knob CONSTELLATION_DEBUG selects
// between.
type DebugSetting string

const (
	// DebugOff disables logging entirely.
	DebugOff DebugSetting = "off"
	// DebugErrors (the default) logs warnings and errors only.
	DebugErrors DebugSetting = "errors"
	// DebugFull logs at debug level and above.
	DebugFull DebugSetting = "full"
)

// SettingFromEnv reads CONSTELLATION_DEBUG, defaulting to DebugErrors for
// an empty or unrecognized value.
func SettingFromEnv() DebugSetting {
	switch DebugSetting(os.Getenv("CONSTELLATION_DEBUG")) {
	case DebugOff:
		return DebugOff
	case DebugFull:
		return DebugFull
	default:
		return DebugErrors
	}
}

func (s DebugSetting) zerologLevel() zerolog.Level {
	switch s {
	case DebugOff:
		return zerolog.Disabled
	case DebugFull:
		return zerolog.DebugLevel
	default:
		return zerolog.WarnLevel
	}
}

// Options configures the zerolog adapter.
type Options struct {
	Writer  io.Writer
	Debug   DebugSetting
	Pretty  bool // console-formatted output instead of JSON lines
	Fields  map[string]interface{}
	Service string
}

// Logger implements ports.Logger using zerolog.
type Logger struct {
	logger zerolog.Logger
	fields []interface{}
}

// New builds a Logger adapter from opts.
func New(opts Options) *Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	if opts.Pretty {
		writer = zerolog.ConsoleWriter{Out: writer}
	}

	debug := opts.Debug
	if debug == "" {
		debug = DebugErrors
	}

	base := zerolog.New(writer).Level(debug.zerologLevel()).With().Timestamp()
	if opts.Service != "" {
		base = base.Str("service", opts.Service)
	}

	fields := make([]interface{}, 0, len(opts.Fields)*2)
	for _, k := range sortedKeys(opts.Fields) {
		fields = append(fields, k, opts.Fields[k])
	}

	return &Logger{logger: base.Logger(), fields: fields}
}

// Debug emits a debug log entry.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.DebugLevel, msg, fields...)
}

// Info emits an info log entry.
func (l *Logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.InfoLevel, msg, fields...)
}

// Warn emits a warning log entry.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.WarnLevel, msg, fields...)
}

// Error emits an error log entry.
func (l *Logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.ErrorLevel, msg, fields...)
}

// With derives a new Logger carrying fields on every subsequent call.
func (l *Logger) With(fields ...interface{}) ports.Logger {
	next := make([]interface{}, len(l.fields), len(l.fields)+len(fields))
	copy(next, l.fields)
	next = append(next, fields...)
	return &Logger{logger: l.logger, fields: next}
}

func (l *Logger) log(ctx context.Context, level zerolog.Level, msg string, fields ...interface{}) {
	event := l.logger.WithLevel(level)
	if event == nil {
		return
	}
	if id := ports.CorrelationID(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	event = applyFields(event, l.fields)
	event = applyFields(event, fields)
	event.Msg(msg)
}

func applyFields(event *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || key == "" {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	return event
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ ports.Logger = (*Logger)(nil)
