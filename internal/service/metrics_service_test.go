package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/courses", 200, 20*time.Millisecond)
	m.ObserveUpstream(http.MethodGet, "/api/auth/crud/cursos/", 200, 10*time.Millisecond)
	m.ObserveUpstream(http.MethodGet, "/api/auth/crud/cursos/", 0, time.Millisecond)
	m.RecordRefresh("failed")
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordSessionEvent("login")

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.Equal(t, uint64(2), snap.UpstreamCalls)
	assert.Equal(t, uint64(1), snap.UpstreamErrors)
	assert.Equal(t, uint64(1), snap.RefreshFailures)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `backend_request_duration_seconds_count{endpoint="/api/auth/crud/cursos/",method="GET",status="error"} 1`))
	assert.True(t, strings.Contains(body, `portal_session_events_total{event="login"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	m.ObserveUpstream("GET", "/", 200, time.Millisecond)
	m.RecordRefresh("succeeded")
	m.RecordSessionEvent("logout")
	assert.Zero(t, m.Snapshot().RequestsTotal)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
