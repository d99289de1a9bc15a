package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type endpointReporter interface {
	Report(ctx context.Context) []dto.EndpointReport
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics   *service.MetricsService
	endpoints endpointReporter
	pingers   map[string]Pinger
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, endpoints endpointReporter, pingers map[string]Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, endpoints: endpoints, pingers: pingers}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings every dependency and answers 503 when one is down.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.pingers))
	status := http.StatusOK
	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Diagnostics godoc
// @Summary Gateway activity snapshot
// @Tags Diagnostics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /diagnostics/metrics [get]
func (h *MetricsHandler) Diagnostics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}

// Endpoints godoc
// @Summary Probe the candidate availability endpoints
// @Tags Diagnostics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /diagnostics/endpoints [get]
func (h *MetricsHandler) Endpoints(c *gin.Context) {
	if h.endpoints == nil {
		response.JSON(c, http.StatusOK, []dto.EndpointReport{}, nil)
		return
	}
	response.JSON(c, http.StatusOK, h.endpoints.Report(c.Request.Context()), nil)
}
