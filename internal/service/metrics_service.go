package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the booking domain counters.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	reservationsCreated   prometheus.Counter
	reservationsCancelled prometheus.Counter
	bookingsRejected      *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	reservationsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total reservations booked",
	})

	reservationsCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_cancelled_total",
		Help: "Total reservations cancelled",
	})

	bookingsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_rejected_total",
		Help: "Total booking attempts rejected, by reason",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reservationsCreated, reservationsCancelled, bookingsRejected, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		reservationsCreated:   reservationsCreated,
		reservationsCancelled: reservationsCancelled,
		bookingsRejected:      bookingsRejected,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ReservationCreated increments the booking counter.
func (m *MetricsService) ReservationCreated() {
	if m == nil {
		return
	}
	m.reservationsCreated.Inc()
}

// ReservationCancelled increments the cancellation counter.
func (m *MetricsService) ReservationCancelled() {
	if m == nil {
		return
	}
	m.reservationsCancelled.Inc()
}

// BookingRejected counts rejected booking attempts by reason
// (conflict, past_date, too_far_ahead).
func (m *MetricsService) BookingRejected(reason string) {
	if m == nil {
		return
	}
	m.bookingsRejected.WithLabelValues(reason).Inc()
}
