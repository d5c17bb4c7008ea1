// Package metrics exposes Prometheus collectors for CMS traffic, relation
// repairs, donation forwarding and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	cmsRequests     *prometheus.CounterVec
	cmsDuration     *prometheus.HistogramVec
	repairOutcomes  *prometheus.CounterVec
	donationForward *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		cmsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_requests_total",
			Help: "CMS requests by collection, method and status.",
		}, []string{"collection", "method", "status"}),
		cmsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cms_request_duration_seconds",
			Help:    "CMS request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection", "method"}),
		repairOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relation_repairs_total",
			Help: "Relation link attempts by outcome and payload shape.",
		}, []string{"outcome", "shape"}),
		donationForward: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_forwards_total",
			Help: "Donation webhook forwards by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cmsRequests, m.cmsDuration, m.repairOutcomes, m.donationForward,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// ObserveCMS matches cms.Observer
func (m *Metrics) ObserveCMS(collection, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cmsRequests.WithLabelValues(collection, method, strconv.Itoa(status)).Inc()
	m.cmsDuration.WithLabelValues(collection, method).Observe(elapsed.Seconds())
}

// RepairOutcome records a relation link result; shape is empty on failure
func (m *Metrics) RepairOutcome(success bool, shape string) {
	if m == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "succeeded"
	}
	m.repairOutcomes.WithLabelValues(outcome, shape).Inc()
}

// DonationForward records the outcome of a webhook forward
func (m *Metrics) DonationForward(outcome string) {
	if m == nil {
		return
	}
	m.donationForward.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
