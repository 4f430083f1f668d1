package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Sum[int64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = sum
			}
		}
	}
	return out
}

func valueWith(sum metricdata.Sum[int64], key, value string) int64 {
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return 0
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRegistration(ctx, "password", "success")
	m.RecordLogin(ctx, "password", "auth")
	m.RecordLogin(ctx, "password", "auth")
	m.RecordRateLimited(ctx, "auth")
	m.RecordWebhook(ctx, "activated")
	m.RecordWebhook(ctx, "duplicate")
	m.RecordResetRequest(ctx, "sent")

	sums := collect(t, reader)

	assert.Equal(t, int64(1), valueWith(sums["auth_registrations_total"], "result", "success"))
	assert.Equal(t, int64(2), valueWith(sums["auth_logins_total"], "result", "auth"))
	assert.Equal(t, int64(1), valueWith(sums["rate_limited_requests_total"], "scope", "auth"))
	assert.Equal(t, int64(1), valueWith(sums["payment_webhooks_total"], "outcome", "activated"))
	assert.Equal(t, int64(1), valueWith(sums["payment_webhooks_total"], "outcome", "duplicate"))
	assert.Equal(t, int64(1), valueWith(sums["password_reset_requests_total"], "outcome", "sent"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRegistration(context.Background(), "password", "success")
		m.RecordWebhook(context.Background(), "ignored")
	})
}

func TestPrometheusHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, handler, err := InitTelemetry("visitka-backend-test")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/metrics", PrometheusHandler(handler))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPrometheusHandler_NotInitialized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/metrics", PrometheusHandler(nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
