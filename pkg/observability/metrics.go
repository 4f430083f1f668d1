package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/visitka/visitka-backend"

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// Metrics holds the business counters. A nil *Metrics records nothing.
type Metrics struct {
	registrations metric.Int64Counter
	logins        metric.Int64Counter
	rateLimited   metric.Int64Counter
	webhooks      metric.Int64Counter
	resetRequests metric.Int64Counter
}

// NewMetrics registers the counters on provider
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	var (
		m   Metrics
		err error
	)

	if m.registrations, err = meter.Int64Counter("auth_registrations_total",
		metric.WithDescription("Account registrations by method and result")); err != nil {
		return nil, fmt.Errorf("failed to create registrations counter: %w", err)
	}
	if m.logins, err = meter.Int64Counter("auth_logins_total",
		metric.WithDescription("Login attempts by method and result")); err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}
	if m.rateLimited, err = meter.Int64Counter("rate_limited_requests_total",
		metric.WithDescription("Requests rejected by the rate limiter")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}
	if m.webhooks, err = meter.Int64Counter("payment_webhooks_total",
		metric.WithDescription("Payment webhook deliveries by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create webhooks counter: %w", err)
	}
	if m.resetRequests, err = meter.Int64Counter("password_reset_requests_total",
		metric.WithDescription("Password reset requests by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create reset counter: %w", err)
	}

	return &m, nil
}

func (m *Metrics) RecordRegistration(ctx context.Context, method, result string) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("result", result),
	))
}

func (m *Metrics) RecordLogin(ctx context.Context, method, result string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("result", result),
	))
}

func (m *Metrics) RecordRateLimited(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

func (m *Metrics) RecordWebhook(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordResetRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.resetRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
