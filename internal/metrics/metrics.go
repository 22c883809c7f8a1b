// Package metrics holds the Prometheus collectors shared by the favorites
// store, the catalog client and the HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookfinder"

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can run without instrumentation.
type Metrics struct {
	FavoriteOps        *prometheus.CounterVec
	MalformedRecords   prometheus.Counter
	ActiveStores       prometheus.Gauge
	CatalogRequests    *prometheus.CounterVec
	CatalogDuration    prometheus.Histogram
	HTTPRequests       *prometheus.CounterVec
	SnapshotsCompleted prometheus.Counter
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		FavoriteOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "favorite_operations_total",
				Help:      "Favorites store operations by kind and outcome",
			},
			[]string{"op", "result"}, // op=add/remove/load, result=ok/noop/error/inactive
		),
		MalformedRecords: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "favorite_malformed_records_total",
				Help:      "Durable favorites records that failed to parse and were loaded as empty",
			},
		),
		ActiveStores: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "favorite_active_stores",
				Help:      "Favorites stores currently bound to an active identity",
			},
		),
		CatalogRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_requests_total",
				Help:      "Requests made to the external book catalog",
			},
			[]string{"result"},
		),
		CatalogDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_request_duration_seconds",
				Help:      "Catalog request latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		HTTPRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status class",
			},
			[]string{"route", "status"},
		),
		SnapshotsCompleted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "favorite_snapshots_total",
				Help:      "Completed favorites snapshot exports",
			},
		),
	}
}

func (m *Metrics) FavoriteOp(op, result string) {
	if m == nil {
		return
	}
	m.FavoriteOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) MalformedRecord() {
	if m == nil {
		return
	}
	m.MalformedRecords.Inc()
}

func (m *Metrics) StoreActivated() {
	if m == nil {
		return
	}
	m.ActiveStores.Inc()
}

func (m *Metrics) StoreDeactivated() {
	if m == nil {
		return
	}
	m.ActiveStores.Dec()
}

func (m *Metrics) CatalogRequest(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.CatalogRequests.WithLabelValues(result).Inc()
	m.CatalogDuration.Observe(took.Seconds())
}

func (m *Metrics) HTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
}

func (m *Metrics) SnapshotCompleted() {
	if m == nil {
		return
	}
	m.SnapshotsCompleted.Inc()
}
