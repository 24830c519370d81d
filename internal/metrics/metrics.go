// Package metrics defines the prometheus collectors exported by timebucket.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timebucket"

// Metrics holds every collector. A nil *Metrics is valid and records nothing,
// so callers never have to guard against disabled metrics.
type Metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	validationFailures *prometheus.CounterVec
	bucketsCreated     *prometheus.CounterVec
	itemsCompleted     prometheus.Counter
	rateLimited        prometheus.Counter
}

// New creates the collectors and registers them with reg.
// It panics when a collector is already registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected writes by entity.",
		}, []string{"entity"}),
		bucketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "time_buckets_created_total",
			Help:      "Time buckets created, by source (manual or template).",
		}, []string{"source"}),
		itemsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bucket_items_completed_total",
			Help:      "Bucket items moved to done through the complete action.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.validationFailures,
		m.bucketsCreated,
		m.itemsCompleted,
		m.rateLimited,
	)
	return m
}

// Sources of created time buckets.
const (
	SourceManual   = "manual"
	SourceTemplate = "template"
)

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordValidationFailure counts a write rejected by validation.
func (m *Metrics) RecordValidationFailure(entity string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(entity).Inc()
}

// RecordBucketsCreated adds n created buckets for source.
func (m *Metrics) RecordBucketsCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bucketsCreated.WithLabelValues(source).Add(float64(n))
}

// RecordItemCompleted counts one completed bucket item.
func (m *Metrics) RecordItemCompleted() {
	if m == nil {
		return
	}
	m.itemsCompleted.Inc()
}

// RecordRateLimited counts one rejected request.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
