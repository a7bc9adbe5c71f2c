// Package metrics holds the Prometheus collectors of the import pipeline.
//
// Every method is safe on a nil *Collector so callers can leave metrics off.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "statement_import"

// Row statuses used as label values.
const (
	RowsParsed    = "parsed"
	RowsValid     = "valid"
	RowsInvalid   = "invalid"
	RowsDuplicate = "duplicate"
	RowsCommitted = "committed"
)

// Session outcomes used as label values.
const (
	OutcomeCommitted = "committed"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "commit_failed"
)

// Collector groups the import collectors on a private registry.
type Collector struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	rows          *prometheus.CounterVec
	sessions      *prometheus.CounterVec
	parseFailures prometheus.Counter
}

// New creates a Collector and registers it on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each import stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Statement rows by pipeline status.",
		}, []string{"status"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished import sessions by outcome.",
		}, []string{"outcome"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Uploads rejected by the parser.",
		}),
	}
	c.registry.MustRegister(c.stageDuration, c.rows, c.sessions, c.parseFailures)
	return c
}

// Registry exposes the registry, e.g. for promhttp or tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveStage records how long stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// StartStage returns a func that records the elapsed time of stage when called.
func (c *Collector) StartStage(stage string) func() {
	start := time.Now()
	return func() { c.ObserveStage(stage, time.Since(start)) }
}

// AddRows increments the row counter for status by n.
func (c *Collector) AddRows(status string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.rows.WithLabelValues(status).Add(float64(n))
}

// SessionFinished counts one session ending with outcome.
func (c *Collector) SessionFinished(outcome string) {
	if c == nil {
		return
	}
	c.sessions.WithLabelValues(outcome).Inc()
}

// ParseFailed counts one rejected upload.
func (c *Collector) ParseFailed() {
	if c == nil {
		return
	}
	c.parseFailures.Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
