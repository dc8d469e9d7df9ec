// Package metrics holds the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ExamsStarted     prometheus.Counter
	ExamsSubmitted   *prometheus.CounterVec // by trigger
	ResultsPublished *prometheus.CounterVec // by status
	LiveSessions     prometheus.GaugeFunc
}

// New registers every collector on a private registry. live reports the
// number of running exam sessions.
func New(live func() int) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		ExamsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eduquest_exams_started_total",
			Help: "Exam sessions opened",
		}),
		ExamsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduquest_exams_submitted_total",
			Help: "Exam attempts submitted, by trigger (manual or timer)",
		}, []string{"trigger"}),
		ResultsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduquest_results_published_total",
			Help: "Results published, by final status",
		}, []string{"status"}),
	}
	if live == nil {
		live = func() int { return 0 }
	}
	m.LiveSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eduquest_live_exam_sessions",
		Help: "Exam sessions currently running a timer",
	}, func() float64 { return float64(live()) })

	m.Registry.MustRegister(
		m.RequestCounter, m.RequestDuration,
		m.ExamsStarted, m.ExamsSubmitted, m.ResultsPublished, m.LiveSessions,
		prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records request count and latency keyed by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
