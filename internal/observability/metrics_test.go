package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := m.Registry().Gather()
	require.NoError(t, err)

	out := map[string]*dto.MetricFamily{}
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func labelsToMap(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.RunFinished("ok", 1.5)
	m.FileProcessed("ingested")
	m.FileProcessed("ingested")
	m.FileProcessed("failed")
	m.FileFailed("schema")
	m.RecordsAppended(21)
	m.Warnings(3)

	families := gather(t, m)

	records := families["wfc_ingest_records_appended_total"]
	require.NotNil(t, records)
	assert.Equal(t, float64(21), records.GetMetric()[0].GetCounter().GetValue())

	warnings := families["wfc_ingest_data_quality_warnings_total"]
	require.NotNil(t, warnings)
	assert.Equal(t, float64(3), warnings.GetMetric()[0].GetCounter().GetValue())

	files := families["wfc_ingest_files_total"]
	require.NotNil(t, files)
	byResult := map[string]float64{}
	for _, metric := range files.GetMetric() {
		byResult[labelsToMap(metric)["result"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"ingested": 2, "failed": 1}, byResult)

	lastSuccess := families["wfc_ingest_last_success_timestamp_seconds"]
	require.NotNil(t, lastSuccess)
	assert.Greater(t, lastSuccess.GetMetric()[0].GetGauge().GetValue(), float64(0))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunFinished("ok", 1)
		m.FileProcessed("ingested")
		m.FileFailed("parse")
		m.RecordsAppended(1)
		m.Warnings(1)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Push(context.Background(), "http://localhost:9091", "job"))
}

func TestMetrics_Push(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/metrics/job/wfc_ingest") {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.RecordsAppended(1)

	require.NoError(t, m.Push(context.Background(), srv.URL, "wfc_ingest"))
	assert.Equal(t, int32(1), hits.Load())

	assert.NoError(t, m.Push(context.Background(), "", "wfc_ingest"))
}

func TestMetrics_PushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMetrics().Push(context.Background(), srv.URL, "wfc_ingest")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "bogus"} {
		logger, err := NewLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
}
