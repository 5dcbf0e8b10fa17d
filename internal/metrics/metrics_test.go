package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
)

func expose(c *Collector) string {
	var buf bytes.Buffer
	c.WritePrometheus(&buf)
	return buf.String()
}

func TestCollector_Series(t *testing.T) {
	c := New()

	c.ObserveExecute("text", 20*time.Millisecond, nil)
	c.ObserveExecute("text", time.Millisecond, errors.New("boom"))
	c.AddUnits("row", 3)
	c.AddUnits("header", 1)
	c.AddRows(3)
	c.AddTruncated(2)
	c.IncStatus("success")
	c.IncConnect("sqlite", nil)
	c.IncConnect("", errors.New("bad"))
	c.HandleOpened()
	c.HandleOpened()
	c.HandleClosed()

	out := expose(c)
	assert.Contains(t, out, `dbstream_executions_total{encoding="text"} 2`)
	assert.Contains(t, out, `dbstream_execution_errors_total{encoding="text"} 1`)
	assert.Contains(t, out, `dbstream_execute_duration_seconds_bucket{encoding="text"`)
	assert.Contains(t, out, `dbstream_units_total{kind="row"} 3`)
	assert.Contains(t, out, `dbstream_units_total{kind="header"} 1`)
	assert.Contains(t, out, "dbstream_rows_total 3")
	assert.Contains(t, out, "dbstream_truncated_fields_total 2")
	assert.Contains(t, out, `dbstream_status_total{status="success"} 1`)
	assert.Contains(t, out, `dbstream_connects_total{backend="sqlite",result="ok"} 1`)
	assert.Contains(t, out, `dbstream_connects_total{backend="none",result="error"} 1`)
	assert.Contains(t, out, "dbstream_open_handles 1")
}

func TestCollector_Options(t *testing.T) {
	set := metrics.NewSet()
	c := New(WithPrefix("lib"), WithMetricsSet(set))
	c.AddRows(1)

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), "lib_rows_total 1")
}

func TestCollector_ZeroAddsNothing(t *testing.T) {
	c := New()
	c.AddUnits("row", 0)
	assert.NotContains(t, expose(c), "dbstream_units_total")
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveExecute("text", time.Second, nil)
		c.AddUnits("row", 1)
		c.AddRows(1)
		c.AddTruncated(1)
		c.IncStatus("panic")
		c.IncConnect("pg", nil)
		c.HandleOpened()
		c.HandleClosed()
		c.WritePrometheus(&bytes.Buffer{})
	})
}
