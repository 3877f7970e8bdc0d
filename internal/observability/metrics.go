package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	recomputeTotal    *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	loadDuration      prometheus.Histogram
	datasetRecords    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by path and status.",
		}, []string{"path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		recomputeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_recompute_total",
			Help: "Total dashboard view recomputations by result.",
		}, []string{"result"}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_recompute_duration_seconds",
			Help:    "Histogram of full view recomputation durations.",
			Buckets: prometheus.DefBuckets,
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataset_load_duration_seconds",
			Help:    "Histogram of dataset load and enrichment durations.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		datasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_records",
			Help: "Number of records in the loaded dataset snapshot.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.recomputeTotal,
		m.recomputeDuration,
		m.loadDuration,
		m.datasetRecords,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path).Observe(d.Seconds())
}

func (m *Metrics) ObserveRecompute(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.recomputeTotal.WithLabelValues(result).Inc()
	m.recomputeDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveLoad(records int, d time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(d.Seconds())
	m.datasetRecords.Set(float64(records))
}
