// Package metrics counts dbstream activity with VictoriaMetrics.
//
// All series live in a private metrics.Set that is never registered
// globally; the host process reads them through WritePrometheus.
//
// Series, with the default "dbstream" prefix:
//   - dbstream_executions_total{encoding}
//   - dbstream_execution_errors_total{encoding}
//   - dbstream_execute_duration_seconds{encoding}
//   - dbstream_units_total{kind}
//   - dbstream_rows_total
//   - dbstream_truncated_fields_total
//   - dbstream_status_total{status}
//   - dbstream_connects_total{backend,result}
//   - dbstream_open_handles
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "dbstream"
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet registers series in set instead of a fresh private one.
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector records execution metrics. Safe for concurrent use; a nil
// *Collector is valid and records nothing.
type Collector struct {
	set    *metrics.Set
	prefix string

	rows      *metrics.Counter
	truncated *metrics.Counter
	handles   atomic.Int64
}

// New creates a Collector.
func New(opts ...Option) *Collector {
	c := &Collector{prefix: "dbstream"}
	for _, opt := range opts {
		opt(c)
	}
	if c.set == nil {
		c.set = metrics.NewSet()
	}

	c.rows = c.set.NewCounter(c.prefix + "_rows_total")
	c.truncated = c.set.NewCounter(c.prefix + "_truncated_fields_total")
	c.set.NewGauge(c.prefix+"_open_handles", func() float64 {
		return float64(c.handles.Load())
	})
	return c
}

// ObserveExecute records one finished execute.
func (c *Collector) ObserveExecute(encoding string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.set.GetOrCreateCounter(fmt.Sprintf(`%s_executions_total{encoding=%q}`, c.prefix, encoding)).Inc()
	if err != nil {
		c.set.GetOrCreateCounter(fmt.Sprintf(`%s_execution_errors_total{encoding=%q}`, c.prefix, encoding)).Inc()
	}
	c.set.GetOrCreateHistogram(fmt.Sprintf(`%s_execute_duration_seconds{encoding=%q}`, c.prefix, encoding)).Update(d.Seconds())
}

// AddUnits counts n emitted units of kind.
func (c *Collector) AddUnits(kind string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.set.GetOrCreateCounter(fmt.Sprintf(`%s_units_total{kind=%q}`, c.prefix, kind)).Add(n)
}

// AddRows counts n streamed rows.
func (c *Collector) AddRows(n int) {
	if c == nil || n == 0 {
		return
	}
	c.rows.Add(n)
}

// AddTruncated counts n fields cut to the buffer size.
func (c *Collector) AddTruncated(n int) {
	if c == nil || n == 0 {
		return
	}
	c.truncated.Add(n)
}

// IncStatus counts one boundary call returning status.
func (c *Collector) IncStatus(status string) {
	if c == nil {
		return
	}
	c.set.GetOrCreateCounter(fmt.Sprintf(`%s_status_total{status=%q}`, c.prefix, status)).Inc()
}

// IncConnect counts one connect attempt against backend.
func (c *Collector) IncConnect(backend string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	if backend == "" {
		backend = "none"
	}
	c.set.GetOrCreateCounter(fmt.Sprintf(`%s_connects_total{backend=%q,result=%q}`, c.prefix, backend, result)).Inc()
}

// HandleOpened and HandleClosed track the number of live handles.
func (c *Collector) HandleOpened() {
	if c != nil {
		c.handles.Add(1)
	}
}

func (c *Collector) HandleClosed() {
	if c != nil {
		c.handles.Add(-1)
	}
}

// WritePrometheus writes every series in Prometheus text format.
func (c *Collector) WritePrometheus(w io.Writer) {
	if c == nil {
		return
	}
	c.set.WritePrometheus(w)
}
