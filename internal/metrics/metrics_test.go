package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipelineCounters(t *testing.T) {
	t.Parallel()

	m := NewPipeline()
	m.RecordStage("toronto", "collecting", 3)
	m.RecordStage("toronto", "collecting", 0)
	m.RecordDrop("toronto", "cleaning", "low_quality")
	m.RecordSourceError("ottawa", "rss")
	m.RecordAlert("toronto", "HIGH", 85)
	m.RecordRun(true)
	m.RecordRun(false)
	m.RecordNotification("sent")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.records.WithLabelValues("toronto", "collecting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("toronto", "cleaning", "low_quality")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceErrors.WithLabelValues("ottawa", "rss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertsStored.WithLabelValues("toronto", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.scores))
}

func TestNilPipelineIsNoop(t *testing.T) {
	t.Parallel()

	var m *Pipeline
	m.RecordStage("r", "s", 1)
	m.RecordDrop("r", "s", "x")
	m.RecordSourceError("r", "s")
	m.RecordAlert("r", "LOW", 10)
	m.RecordRun(true)
	m.RecordNotification("failed")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerServesMetrics(t *testing.T) {
	t.Parallel()

	m := NewPipeline()
	m.RecordRun(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agentradar_pipeline_runs_total{status="success"} 1`)
}
