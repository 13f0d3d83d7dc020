package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "food_recognition"

// Metrics groups the service's Prometheus collectors around one registry.
type Metrics struct {
	registry          *prometheus.Registry
	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	predictions       *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	failures          *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			}, []string{"path"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "predictions_total",
				Help:      "Predictions served per food label",
			}, []string{"label"},
		),
		inferenceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "inference_duration_seconds",
				Help:      "Duration of model forward passes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "processing_failures_total",
				Help:      "Failed predictions per error kind",
			}, []string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.predictions,
		m.inferenceDuration,
		m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.registerCPUFeatures()
	return m
}

func (m *Metrics) registerCPUFeatures() {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "cpu_feature",
		Help:      "CPU vector extensions available to the inference runtime",
	}, []string{"feature"})
	for _, f := range cpuFeatures() {
		v := 0.0
		if f.present {
			v = 1
		}
		gauge.WithLabelValues(f.name).Set(v)
	}
	m.registry.MustRegister(gauge)
}

// RegisterPool exports the session pool counters.
func (m *Metrics) RegisterPool(pool *ModelSessionPool) {
	gauge := func(name, help string, value func(PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(pool.Stats()) })
	}
	counter := func(name, help string, value func(PoolStats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(pool.Stats()) })
	}

	m.registry.MustRegister(
		gauge("size", "Maximum number of pooled sessions", func(s PoolStats) float64 { return float64(s.Size) }),
		gauge("live_sessions", "Sessions currently alive", func(s PoolStats) float64 { return float64(s.Live) }),
		gauge("sessions_in_use", "Sessions currently serving a request", func(s PoolStats) float64 { return float64(s.InUse) }),
		counter("acquired_total", "Sessions handed out", func(s PoolStats) float64 { return float64(s.TotalAcquired) }),
		counter("released_total", "Sessions returned after a successful run", func(s PoolStats) float64 { return float64(s.TotalReleased) }),
		counter("discarded_total", "Sessions destroyed after a failed run", func(s PoolStats) float64 { return float64(s.TotalDiscarded) }),
		counter("acquire_failures_total", "Acquire calls that timed out", func(s PoolStats) float64 { return float64(s.AcquireFailures) }),
		counter("creation_failures_total", "Sessions that failed to load", func(s PoolStats) float64 { return float64(s.CreationFailures) }),
		counter("wait_seconds_total", "Time spent waiting for sessions", func(s PoolStats) float64 { return s.WaitTime.Seconds() }),
	)
}

func (m *Metrics) ObserveRequest(path, method string, status int, duration time.Duration) {
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

func (m *Metrics) ObservePrediction(label string, inference time.Duration) {
	m.predictions.WithLabelValues(label).Inc()
	m.inferenceDuration.Observe(inference.Seconds())
}

func (m *Metrics) ObserveFailure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
