package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	UsersRegistered  prometheus.Counter
	LoginAttempts    *prometheus.CounterVec
	TokenRotations   *prometheus.CounterVec
	GenerationsTotal *prometheus.CounterVec
	QuotaRejections  prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of users registered",
		}),
		LoginAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"}, // success, failed
		),
		TokenRotations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_rotations_total",
				Help: "Total number of refresh token rotations",
			},
			[]string{"status"}, // success, failed
		),
		GenerationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "message_generations_total",
				Help: "Total number of message generations",
			},
			[]string{"provider"},
		),
		QuotaRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Total number of requests rejected by the daily quota",
		}),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, not raw path

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// RecordUserRegistered increments users registered counter
func (m *Metrics) RecordUserRegistered() {
	m.UsersRegistered.Inc()
}

// RecordLoginAttempt increments login attempts counter
func (m *Metrics) RecordLoginAttempt(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

// RecordTokenRotation increments the rotation counter
func (m *Metrics) RecordTokenRotation(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	m.TokenRotations.WithLabelValues(status).Inc()
}

// RecordGeneration increments the generation counter for a provider
func (m *Metrics) RecordGeneration(provider string) {
	m.GenerationsTotal.WithLabelValues(provider).Inc()
}

// RecordQuotaRejection increments the quota rejection counter
func (m *Metrics) RecordQuotaRejection() {
	m.QuotaRejections.Inc()
}
