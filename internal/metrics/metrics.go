// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the custom collectors. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	UpvotesTotal    *prometheus.CounterVec
	AuthTotal       *prometheus.CounterVec
	EventsTotal     *prometheus.CounterVec
	CacheTotal      *prometheus.CounterVec
	ReconciledTotal prometheus.Counter
}

// New creates a private registry with the Go and process collectors and
// registers the custom metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "titanhub_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "titanhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		UpvotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "titanhub_upvotes_total",
			Help: "Accepted upvotes by content kind",
		}, []string{"kind"}),
		AuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "titanhub_auth_total",
			Help: "Authentication attempts by operation and result",
		}, []string{"op", "result"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "titanhub_events_published_total",
			Help: "Domain events handed to the broker by result",
		}, []string{"result"}),
		CacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "titanhub_top_cache_total",
			Help: "Top list cache lookups by result",
		}, []string{"result"}),
		ReconciledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "titanhub_comment_counts_reconciled_total",
			Help: "Discussions whose comment count was recomputed",
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.UpvotesTotal,
		m.AuthTotal, m.EventsTotal, m.CacheTotal, m.ReconciledTotal)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Upvote(kind string) {
	if m != nil {
		m.UpvotesTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Auth(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "fail"
	}
	m.AuthTotal.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Event(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.EventsTotal.WithLabelValues("ok").Inc()
	} else {
		m.EventsTotal.WithLabelValues("fail").Inc()
	}
}

func (m *Metrics) Cache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheTotal.WithLabelValues("hit").Inc()
	} else {
		m.CacheTotal.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) Reconciled(n int) {
	if m != nil && n > 0 {
		m.ReconciledTotal.Add(float64(n))
	}
}
