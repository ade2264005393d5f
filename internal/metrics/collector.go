// Package metrics exposes Prometheus counters for assessments and the
// collaborators around them. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics on its own registry.
type Collector struct {
	reg *prometheus.Registry

	assessments        *prometheus.CounterVec
	assessmentDuration prometheus.Histogram
	assessmentCache    *prometheus.CounterVec
	healthScore        prometheus.Histogram

	priceLookups  *prometheus.CounterVec
	seedResults   *prometheus.CounterVec
	apiSpend      *prometheus.CounterVec
	guidanceCalls *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewCollector registers every metric on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		reg: reg,

		assessments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_assessments_total",
				Help: "Assessments by recommended action and deciding rule",
			},
			[]string{"action", "rule"},
		),
		assessmentDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "opterra_assessment_duration_seconds",
				Help:    "Wall time of one engine assessment",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
		),
		assessmentCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_assessment_cache_total",
				Help: "Fingerprint cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		healthScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "opterra_health_score",
				Help:    "Distribution of assessed health scores",
				Buckets: prometheus.LinearBuckets(10, 10, 9),
			},
		),

		priceLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_price_lookups_total",
				Help: "Price lookups by source (cache, stale, static)",
			},
			[]string{"source"},
		),
		seedResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_price_seed_total",
				Help: "Price seeding outcomes by provider",
			},
			[]string{"provider", "status"},
		),
		apiSpend: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_api_spend_usd_total",
				Help: "Estimated AI API spend in USD",
			},
			[]string{"provider"},
		),
		guidanceCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_guidance_total",
				Help: "Guidance explanations by origin (ai, fallback)",
			},
			[]string{"origin"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_notifications_total",
				Help: "Lead and reminder deliveries by sink and status",
			},
			[]string{"sink", "status"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opterra_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		httpLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opterra_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// ObserveAssessment records one engine run.
func (c *Collector) ObserveAssessment(action, rule string, healthScore int, d time.Duration) {
	if c == nil {
		return
	}
	c.assessments.WithLabelValues(action, rule).Inc()
	c.assessmentDuration.Observe(d.Seconds())
	c.healthScore.Observe(float64(healthScore))
}

// CacheLookup records a fingerprint cache hit or miss.
func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	c.assessmentCache.WithLabelValues(outcome).Inc()
}

// PriceLookup records where a price came from.
func (c *Collector) PriceLookup(source string) {
	if c == nil {
		return
	}
	c.priceLookups.WithLabelValues(source).Inc()
}

// SeedResult records one catalog entry processed by the seeder.
func (c *Collector) SeedResult(provider string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.seedResults.WithLabelValues(provider, status).Inc()
}

// APISpend adds usd to the running spend for provider.
func (c *Collector) APISpend(provider string, usd float64) {
	if c == nil || usd <= 0 {
		return
	}
	c.apiSpend.WithLabelValues(provider).Add(usd)
}

// Guidance records whether an explanation came from the model or the fallback.
func (c *Collector) Guidance(fallback bool) {
	if c == nil {
		return
	}
	origin := "ai"
	if fallback {
		origin = "fallback"
	}
	c.guidanceCalls.WithLabelValues(origin).Inc()
}

// Notification records one delivery attempt to sink.
func (c *Collector) Notification(sink string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.notifications.WithLabelValues(sink, status).Inc()
}

// HTTPRequest records one served request.
func (c *Collector) HTTPRequest(route, method string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}
