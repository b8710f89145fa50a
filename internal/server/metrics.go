package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on a per-server registry so tests and multiple
// servers in one process do not collide on the default registerer.
type metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	turns           *prometheus.CounterVec
	turnDuration    prometheus.Histogram
	dispatches      *prometheus.CounterVec
	results         *prometheus.CounterVec
	sessions        prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validator_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "validator_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"route"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validator_turns_total",
				Help: "Conversational turns by outcome",
			},
			[]string{"status"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "validator_turn_duration_seconds",
				Help:    "Wall-clock duration of a conversational turn",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validator_dispatches_total",
				Help: "Specialist dispatches observed in the event stream",
			},
			[]string{"specialist"},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validator_results_total",
				Help: "Tool results by attribution method",
			},
			[]string{"method"},
		),
		sessions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "validator_sessions_created_total",
				Help: "Sessions created through the API",
			},
		),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.turns, m.turnDuration, m.dispatches, m.results, m.sessions)
	return m
}

// statusRecorder captures the response status. It forwards Flush so SSE
// handlers keep working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
