package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elonfeng/rentradar/pkg/score"
)

// Metrics holds the HTTP and catalog collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	added    *prometheus.CounterVec
	listings *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentradar_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentradar_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rentradar_http_inflight_requests",
				Help: "Number of HTTP requests currently being served",
			},
		),
		added: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentradar_listings_added_total",
				Help: "Listings added, by how they were entered",
			},
			[]string{"via"},
		),
		listings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rentradar_listings",
				Help: "Listings in the catalog after the last scoring pass",
			},
			[]string{"state"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight, m.added, m.listings)
	return m
}

// Middleware records request count, latency and in-flight requests. The
// route template is used as the label to keep cardinality low.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(rec.status),
		}
		m.requests.With(labels).Inc()
		m.duration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) listingAdded(via string) {
	m.added.WithLabelValues(via).Inc()
}

func (m *Metrics) observeReport(r score.Report) {
	m.listings.WithLabelValues("scorable").Set(float64(r.Scorable))
	m.listings.WithLabelValues("unscorable").Set(float64(r.Unscorable))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
