package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "csvsearch"

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	ingestRows     *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	engineUp       prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ingestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Rows processed by ingestion, by outcome.",
		}, []string{"outcome"}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Wall time of whole ingestion calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Search calls, by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall time of search calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		engineUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_up",
			Help:      "1 when the last engine health check succeeded.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestRows,
		m.ingestDuration,
		m.searches,
		m.searchDuration,
		m.engineUp,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveIngest(success, failure int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ingestRows.WithLabelValues("success").Add(float64(success))
	m.ingestRows.WithLabelValues("failure").Add(float64(failure))
	m.ingestDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSearch(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SetEngineUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.engineUp.Set(1)
		return
	}
	m.engineUp.Set(0)
}
