// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes recorded by the OAuth callback.
const (
	LoginOutcomeSuccess = "success"
	LoginOutcomeFailure = "failure"
)

// Verify outcomes recorded by the edge-verification endpoints.
const (
	VerifyOutcomeOK           = "ok"
	VerifyOutcomeUnauthorized = "unauthorized"
	VerifyOutcomeInvalidToken = "invalid_token"
	VerifyOutcomeNotApproved  = "not_approved"
	VerifyOutcomeNotAdmin     = "not_admin"
)

// Recorder is the metrics interface consumed by handlers.
type Recorder interface {
	RecordLogin(outcome string)
	RecordVerify(endpoint, outcome string)
}

// Collector registers and records gateway metrics.
type Collector struct {
	logins       *prometheus.CounterVec
	verifies     *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_logins_total",
			Help: "OAuth login attempts by outcome.",
		}, []string{"outcome"}),
		verifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_verify_requests_total",
			Help: "Edge verification requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authgate_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(c.logins, c.verifies, c.httpDuration)
	return c
}

// RecordLogin records one OAuth login attempt.
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordVerify records one edge-verification request.
func (c *Collector) RecordVerify(endpoint, outcome string) {
	c.verifies.WithLabelValues(endpoint, outcome).Inc()
}

// Middleware observes request latency per route.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				}
			}

			c.httpDuration.WithLabelValues(
				ctx.Request().Method,
				ctx.Path(),
				strconv.Itoa(status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
