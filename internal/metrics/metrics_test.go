package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.ObserveIngest(99, 1, time.Second)
	m.ObserveSearch(nil, 10*time.Millisecond)
	m.ObserveSearch(errors.New("boom"), 10*time.Millisecond)
	m.SetEngineUp(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `csvsearch_ingest_rows_total{outcome="success"} 99`)
	require.Contains(t, body, `csvsearch_ingest_rows_total{outcome="failure"} 1`)
	require.Contains(t, body, `csvsearch_searches_total{outcome="error"} 1`)
	require.Contains(t, body, `csvsearch_searches_total{outcome="ok"} 1`)
	require.Contains(t, body, "csvsearch_engine_up 1")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveIngest(1, 1, time.Second)
	m.ObserveSearch(nil, time.Second)
	m.SetEngineUp(false)
	require.NotNil(t, m.Handler())
}
