// Package metrics is the default internal/ports.MetricsCollector adapter,
// backed by github.com/prometheus/client_golang. Grounded on
// evalgo-org-eve/tracing.Metrics's promauto-registered Counter/Gauge/
// HistogramVec shape, generalized from that package's fixed, hand-declared
// metric set to one that registers a Vec lazily per (name, sorted label
// key set) the first time IncCounter/SetGauge/ObserveHistogram sees it —
// ports.MetricsCollector's contract is a generic name+labels call, not a
// fixed metric catalogue, so the vectors themselves can't be declared up
// front the way the teacher's tracing package does.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexisbeaulieu97/constellation/internal/ports"
)

// Namespace prefixes every metric this adapter registers.
const Namespace = "constellation"

// DefaultHistogramBuckets mirrors prometheus.DefBuckets, named here so
// callers constructing a Collector don't need to import prometheus
// themselves just to pick a bucket set.
var DefaultHistogramBuckets = prometheus.DefBuckets

// Collector implements ports.MetricsCollector by lazily registering one
// CounterVec/GaugeVec/HistogramVec per distinct (metric name, sorted label
// key set) pair against a prometheus.Registerer.
type Collector struct {
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	counters   map[vecKey]*prometheus.CounterVec
	gauges     map[vecKey]*prometheus.GaugeVec
	histograms map[vecKey]*prometheus.HistogramVec
}

type vecKey struct {
	name       string
	labelNames string // sorted, comma-joined
}

// New builds a Collector registering against reg. Pass
// prometheus.DefaultRegisterer to expose metrics on the default /metrics
// handler, or a fresh prometheus.NewRegistry() for test isolation.
func New(reg prometheus.Registerer) *Collector {
	return &Collector{
		registerer: reg,
		buckets:    DefaultHistogramBuckets,
		counters:   make(map[vecKey]*prometheus.CounterVec),
		gauges:     make(map[vecKey]*prometheus.GaugeVec),
		histograms: make(map[vecKey]*prometheus.HistogramVec),
	}
}

func keyFor(name string, labels map[string]string) (vecKey, []string, []string) {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	values := make([]string, len(names))
	for i, n := range names {
		values[i] = labels[n]
	}
	return vecKey{name: name, labelNames: strings.Join(names, ",")}, names, values
}

// IncCounter increments (registering on first use) the counter identified
// by name and the label set's keys.
func (c *Collector) IncCounter(_ context.Context, name string, labels map[string]string) {
	key, names, values := keyFor(name, labels)

	c.mu.Lock()
	vec, ok := c.counters[key]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      name,
		}, names)
		c.registerer.MustRegister(vec)
		c.counters[key] = vec
	}
	c.mu.Unlock()

	vec.WithLabelValues(values...).Inc()
}

// SetGauge sets (registering on first use) the gauge identified by name
// and the label set's keys.
func (c *Collector) SetGauge(_ context.Context, name string, value float64, labels map[string]string) {
	key, names, values := keyFor(name, labels)

	c.mu.Lock()
	vec, ok := c.gauges[key]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      name,
		}, names)
		c.registerer.MustRegister(vec)
		c.gauges[key] = vec
	}
	c.mu.Unlock()

	vec.WithLabelValues(values...).Set(value)
}

// ObserveHistogram observes (registering on first use) the histogram
// identified by name and the label set's keys.
func (c *Collector) ObserveHistogram(_ context.Context, name string, value float64, labels map[string]string) {
	key, names, values := keyFor(name, labels)

	c.mu.Lock()
	vec, ok := c.histograms[key]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      name,
			Buckets:   c.buckets,
		}, names)
		c.registerer.MustRegister(vec)
		c.histograms[key] = vec
	}
	c.mu.Unlock()

	vec.WithLabelValues(values...).Observe(value)
}

var _ ports.MetricsCollector = (*Collector)(nil)
