// Package metrics records poll-loop and API client activity.
// It includes a small collector interface, an in-memory implementation for
// tests and a Prometheus-backed implementation for the --metrics-addr endpoint.
package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Collector is the interface for collecting and reporting metrics.
type Collector interface {
	CounterInc(name string, labels ...string)
	CounterAdd(name string, value float64, labels ...string)

	GaugeSet(name string, value float64, labels ...string)
	GaugeInc(name string, labels ...string)
	GaugeDec(name string, labels ...string)

	HistogramObserve(name string, value float64, labels ...string)

	// Handler returns an HTTP handler for the metrics endpoint.
	Handler() http.Handler
}

// MetricType represents the type of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricDefinition defines a metric with its metadata.
type MetricDefinition struct {
	Name    string
	Type    MetricType
	Help    string
	Labels  []string
	Buckets []float64 // histograms only
}

// Poll results recorded on PollTicksTotal.
const (
	ResultOK       = "ok"
	ResultTerminal = "terminal"
	ResultError    = "error"
	ResultStale    = "stale"
)

var (
	PollTicksTotal = MetricDefinition{
		Name:   "scanwatch_poll_ticks_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of poll ticks by outcome",
		Labels: []string{"result"},
	}
	PollTickDuration = MetricDefinition{
		Name:    "scanwatch_poll_tick_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of a full poll tick in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}
	ActivePolls = MetricDefinition{
		Name: "scanwatch_active_polls",
		Type: MetricTypeGauge,
		Help: "Number of running poll loops (0 or 1)",
	}

	HTTPRequestsTotal = MetricDefinition{
		Name:   "scanwatch_http_requests_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of API requests made",
		Labels: []string{"method", "status"},
	}
	HTTPRequestDuration = MetricDefinition{
		Name:    "scanwatch_http_request_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of API requests in seconds",
		Labels:  []string{"method"},
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}
)

// Definitions lists every metric the monitor records.
var Definitions = []MetricDefinition{
	PollTicksTotal,
	PollTickDuration,
	ActivePolls,
	HTTPRequestsTotal,
	HTTPRequestDuration,
}

// NopCollector is a no-op metrics collector that discards all metrics.
type NopCollector struct{}

func (c *NopCollector) CounterInc(name string, labels ...string)                      {}
func (c *NopCollector) CounterAdd(name string, value float64, labels ...string)       {}
func (c *NopCollector) GaugeSet(name string, value float64, labels ...string)         {}
func (c *NopCollector) GaugeInc(name string, labels ...string)                        {}
func (c *NopCollector) GaugeDec(name string, labels ...string)                        {}
func (c *NopCollector) HistogramObserve(name string, value float64, labels ...string) {}
func (c *NopCollector) Handler() http.Handler                                         { return http.NotFoundHandler() }

// OrNop returns c, or a NopCollector when c is nil.
func OrNop(c Collector) Collector {
	if c == nil {
		return &NopCollector{}
	}
	return c
}

// InMemoryCollector stores metrics in memory for testing purposes.
type InMemoryCollector struct {
	mu         sync.RWMutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// key builds "name,k1=v1,k2=v2" from label pairs.
func key(name string, labels []string) string {
	var b strings.Builder
	b.WriteString(name)
	for i := 0; i+1 < len(labels); i += 2 {
		b.WriteString(",")
		b.WriteString(labels[i])
		b.WriteString("=")
		b.WriteString(labels[i+1])
	}
	return b.String()
}

func (c *InMemoryCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *InMemoryCollector) CounterAdd(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key(name, labels)] += value
}

func (c *InMemoryCollector) GaugeSet(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[key(name, labels)] = value
}

func (c *InMemoryCollector) GaugeInc(name string, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[key(name, labels)]++
}

func (c *InMemoryCollector) GaugeDec(name string, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[key(name, labels)]--
}

func (c *InMemoryCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name, labels)
	c.histograms[k] = append(c.histograms[k], value)
}

func (c *InMemoryCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

// Counter returns the value of a counter.
func (c *InMemoryCollector) Counter(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[key(name, labels)]
}

// Gauge returns the value of a gauge.
func (c *InMemoryCollector) Gauge(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gauges[key(name, labels)]
}

// Histogram returns all observations of a histogram.
func (c *InMemoryCollector) Histogram(name string, labels ...string) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]float64(nil), c.histograms[key(name, labels)]...)
}

// CounterKeys returns the recorded counter keys, sorted.
func (c *InMemoryCollector) CounterKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.counters))
	for k := range c.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Timer records the time since its creation to a histogram.
type Timer struct {
	start     time.Time
	collector Collector
	name      string
	labels    []string
}

// NewTimer creates a new timer that will record to the given histogram.
func NewTimer(collector Collector, name string, labels ...string) *Timer {
	return &Timer{
		start:     time.Now(),
		collector: OrNop(collector),
		name:      name,
		labels:    labels,
	}
}

// ObserveDuration records the duration since the timer was created.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	t.collector.HistogramObserve(t.name, d.Seconds(), t.labels...)
	return d
}

var (
	_ Collector = (*NopCollector)(nil)
	_ Collector = (*InMemoryCollector)(nil)
)
