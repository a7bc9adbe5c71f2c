package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Rows(t *testing.T) {
	c := New()

	c.AddRows(RowsParsed, 10)
	c.AddRows(RowsInvalid, 1)
	c.AddRows(RowsInvalid, 0)
	c.AddRows(RowsParsed, 2)

	assert.Equal(t, 12.0, testutil.ToFloat64(c.rows.WithLabelValues(RowsParsed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rows.WithLabelValues(RowsInvalid)))
}

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.SessionFinished(OutcomeCommitted)
	c.SessionFinished(OutcomeAborted)
	c.SessionFinished(OutcomeCommitted)
	c.ParseFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessions.WithLabelValues(OutcomeCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessions.WithLabelValues(OutcomeAborted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseFailures))
}

func TestCollector_Stages(t *testing.T) {
	c := New()

	c.ObserveStage("normalize", 3*time.Millisecond)
	done := c.StartStage("classify")
	done()

	assert.Equal(t, 2, testutil.CollectAndCount(c.stageDuration))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.AddRows(RowsParsed, 1)
		c.ObserveStage("x", time.Second)
		c.StartStage("y")()
		c.SessionFinished(OutcomeAborted)
		c.ParseFailed()
	})
	assert.Nil(t, c.Registry())
	assert.NoError(t, c.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := New()
	c.AddRows(RowsCommitted, 3)
	path := filepath.Join(t.TempDir(), "import.prom")

	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `statement_import_rows_total{status="committed"} 3`))
}
