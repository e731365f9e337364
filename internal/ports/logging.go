// Package ports declares the capability-hook contracts spec.md §5 keeps
// pluggable: logging, metrics, tracing, caching, and throttling. The core
// engine (internal/engine) takes its logger, metrics collector and cache
// backends only through these interfaces, so a caller can swap in a no-op
// or a test double without touching scheduler code. Throttling is the
// exception: the scheduler uses its own golang.org/x/time/rate limiters.
package ports

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Logger is Constellation's structured logging contract. Calls take
// key/value pairs and must be safe for concurrent use; With derives a
// logger carrying a fixed set of extra fields (e.g. an execution ID) for
// every subsequent call.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type correlationIDKey struct{}

// WithCorrelationID attaches an execution/request correlation ID to ctx so
// every Logger call downstream can be tied back to one run.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts the ID WithCorrelationID attached, or "" if none.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NoOpLogger discards every call. It is the zero-value fallback a
// component should use when no Logger was wired, rather than nil-checking
// at every call site.
type NoOpLogger struct{}

func (NoOpLogger) Debug(context.Context, string, ...interface{}) {}
func (NoOpLogger) Info(context.Context, string, ...interface{})  {}
func (NoOpLogger) Warn(context.Context, string, ...interface{})  {}
func (NoOpLogger) Error(context.Context, string, ...interface{}) {}
func (l NoOpLogger) With(...interface{}) Logger                  { return l }

// GenerateCorrelationID produces a UUIDv4 string for a fresh top-level
// correlation ID, independent of internal/domain's execution UUIDs so the
// CLI entry point can mint one before a DagSpec is even loaded.
func GenerateCorrelationID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("failed to generate correlation id: %v", err))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	var encoded [32]byte
	hex.Encode(encoded[:], b[:])

	return fmt.Sprintf("%s-%s-%s-%s-%s",
		encoded[0:8], encoded[8:12], encoded[12:16], encoded[16:20], encoded[20:32])
}
