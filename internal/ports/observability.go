package ports

import "context"

// MetricsCollector records quantitative observability signals. Standard
// metric names:
//   - Counters:
//     constellation_runs_total{status="completed|suspended|failed|cancelled"}
//     constellation_module_invocations_total{module="...",status="completed|failed|skipped"}
//   - Gauges:
//     constellation_active_runs
//   - Histograms:
//     constellation_run_duration_seconds
//     constellation_module_duration_seconds{module="..."}
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}

// Tracer manages distributed tracing spans. Span names follow
// `<component>.<operation>` (e.g. `engine.run`, `transform.apply`,
// `suspendstore.resume`).
type Tracer interface {
	StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, Span)
}

// Span is a single active trace span.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(status SpanStatus, message string)
	End()
}

// SpanStatus is a span's terminal outcome.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)
