package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/myteacher-portal/internal/backend"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type stubProber struct {
	statuses map[string]int
	errs     map[string]error
	calls    []string
}

func (p *stubProber) Probe(_ context.Context, _ backend.Credentials, path string) (int, error) {
	p.calls = append(p.calls, path)
	if err, ok := p.errs[path]; ok {
		return 0, err
	}
	if status, ok := p.statuses[path]; ok {
		return status, nil
	}
	return http.StatusNotFound, nil
}

func TestEndpointExists(t *testing.T) {
	for status, want := range map[int]bool{200: true, 204: true, 401: true, 403: true, 404: false, 405: false, 500: false} {
		assert.Equal(t, want, EndpointExists(status), "status %d", status)
	}
}

func TestResolvePrefersExplicitConfiguration(t *testing.T) {
	prober := &stubProber{}
	svc := NewDiscoveryService(prober, DiscoveryConfig{AvailabilityEndpoint: "/custom/slots/", ProbeOnStartup: false}, nil)
	svc.Resolve(context.Background())

	path, err := svc.Endpoint(ResourceAvailability)
	require.NoError(t, err)
	assert.Equal(t, "/custom/slots/", path)

	path, err = svc.Endpoint(ResourceBlackout)
	require.NoError(t, err)
	assert.Equal(t, DefaultBlackoutPath, path)
	assert.Empty(t, prober.calls)
}

func TestResolveProbesCandidatesInOrder(t *testing.T) {
	prober := &stubProber{
		statuses: map[string]int{"/crud/horarios/": http.StatusUnauthorized},
		errs:     map[string]error{"/crud/bloqueos/": errors.New("dial tcp: refused")},
	}
	svc := NewDiscoveryService(prober, DiscoveryConfig{
		AvailabilityCandidates: []string{"/crud/disponibilidades/", "/crud/horarios/", "/crud/agenda/"},
		ProbeOnStartup:         true,
	}, nil)
	svc.Resolve(context.Background())

	path, err := svc.Endpoint(ResourceAvailability)
	require.NoError(t, err)
	assert.Equal(t, "/crud/horarios/", path)
	assert.NotContains(t, prober.calls, "/crud/agenda/")

	_, err = svc.Endpoint(ResourceBlackout)
	assert.ErrorIs(t, err, appErrors.ErrEndpointNotConfigured)
}

func TestReportProbesEveryCandidate(t *testing.T) {
	prober := &stubProber{statuses: map[string]int{"/a/": http.StatusOK, "/b/": http.StatusOK}}
	svc := NewDiscoveryService(prober, DiscoveryConfig{
		AvailabilityCandidates: []string{"/a/", "/b/"},
		BlackoutCandidates:     []string{"/c/"},
	}, nil)
	svc.Resolve(context.Background())

	reports := svc.Report(context.Background())
	require.Len(t, reports, 2)
	assert.Equal(t, DefaultAvailabilityPath, reports[0].Resolved)
	require.Len(t, reports[0].Candidates, 2)
	assert.True(t, reports[0].Candidates[1].Exists)
	require.Len(t, reports[1].Candidates, 1)
	assert.False(t, reports[1].Candidates[0].Exists)
	assert.Equal(t, "received status 404", reports[1].Candidates[0].Error)
}
