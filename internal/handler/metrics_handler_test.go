package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/service"
)

type stubReporter struct{}

func (stubReporter) Report(context.Context) []dto.EndpointReport {
	return []dto.EndpointReport{{Resource: service.ResourceAvailability, Resolved: "/crud/disponibilidades/"}}
}

func TestMetricsHandlerReady(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	handler := NewMetricsHandler(nil, nil, map[string]Pinger{"backend": ok})
	c, rec := newTestContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)

	handler = NewMetricsHandler(nil, nil, map[string]Pinger{"backend": ok, "redis": down})
	c, rec = newTestContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil, nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, c.Writer.Status())

	metrics := service.NewMetricsService()
	metrics.RecordSessionEvent("created")
	c, rec = newTestContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(metrics, nil, nil).Prometheus(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "session")
}

func TestMetricsHandlerEndpoints(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/diagnostics/endpoints", nil)
	NewMetricsHandler(nil, stubReporter{}, nil).Endpoints(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), "/crud/disponibilidades/")
}
