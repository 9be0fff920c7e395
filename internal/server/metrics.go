package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strayspot/territories/internal/territory"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	checks    *prometheus.CounterVec
	estimates *prometheus.CounterVec
	dropped   prometheus.Counter
	radius    prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "strays_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "strays_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "strays_admission_checks_total",
			Help: "Candidate sighting checks by animal type and outcome.",
		}, []string{"animal_type", "outcome"}),
		estimates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "strays_territory_estimates_total",
			Help: "Territory pipeline runs by animal type and outcome.",
		}, []string{"animal_type", "outcome"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "strays_sightings_dropped_total",
			Help: "Sightings removed by the outlier filter.",
		}),
		radius: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "strays_territory_radius_meters",
			Help:    "Radius of accepted territories.",
			Buckets: []float64{50, 100, 250, 500, 750, 1000, 1500, 2000, 3000, 5000},
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

func (m *Metrics) observeRequest(r *http.Request, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	route := "unmatched"
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCheck(tag territory.AnimalType, d territory.Decision) {
	if m == nil {
		return
	}
	outcome := "admitted"
	if !d.Admitted {
		outcome = "rejected"
	}
	m.checks.WithLabelValues(m.typeLabel(tag), outcome).Inc()
}

func (m *Metrics) observeEstimate(tag territory.AnimalType, est territory.Estimate) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !est.OK {
		outcome = "rejected"
	}
	m.estimates.WithLabelValues(m.typeLabel(tag), outcome).Inc()
	m.dropped.Add(float64(len(est.Dropped)))
	if est.OK {
		m.radius.Observe(est.Territory.RadiusMeters)
	}
}

// typeLabel keeps label cardinality bounded to the built-in tags.
func (m *Metrics) typeLabel(tag territory.AnimalType) string {
	switch t := tag.Normalize(); t {
	case territory.Dog, territory.Cat:
		return string(t)
	default:
		return string(territory.Other)
	}
}
