package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

// Resources whose backend path may need discovering.
const (
	ResourceAvailability = "availability"
	ResourceBlackout     = "blackout"

	DefaultAvailabilityPath = "/crud/disponibilidades/"
	DefaultBlackoutPath     = "/crud/bloqueos/"
)

// Prober issues one GET without the refresh-and-retry cycle.
type Prober interface {
	Probe(ctx context.Context, creds backend.Credentials, path string) (int, error)
}

// DiscoveryConfig lists the configured and candidate paths per resource.
type DiscoveryConfig struct {
	AvailabilityEndpoint   string
	BlackoutEndpoint       string
	AvailabilityCandidates []string
	BlackoutCandidates     []string
	ProbeOnStartup         bool
}

// DiscoveryService pins the backend path of each availability resource, from
// configuration or from one probe run at startup.
type DiscoveryService struct {
	prober Prober
	cfg    DiscoveryConfig
	logger *zap.Logger

	mu       sync.RWMutex
	resolved map[string]string
}

// NewDiscoveryService constructs a DiscoveryService.
func NewDiscoveryService(prober Prober, cfg DiscoveryConfig, logger *zap.Logger) *DiscoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AvailabilityCandidates) == 0 {
		cfg.AvailabilityCandidates = []string{DefaultAvailabilityPath}
	}
	if len(cfg.BlackoutCandidates) == 0 {
		cfg.BlackoutCandidates = []string{DefaultBlackoutPath}
	}
	return &DiscoveryService{
		prober:   prober,
		cfg:      cfg,
		logger:   logger,
		resolved: make(map[string]string),
	}
}

func (s *DiscoveryService) configured(resource string) (string, []string, string) {
	if resource == ResourceBlackout {
		return s.cfg.BlackoutEndpoint, s.cfg.BlackoutCandidates, DefaultBlackoutPath
	}
	return s.cfg.AvailabilityEndpoint, s.cfg.AvailabilityCandidates, DefaultAvailabilityPath
}

// Resolve pins every resource. Explicit configuration wins; otherwise the
// candidates are probed when enabled, or the default path is used. A resource
// whose probe finds nothing stays unresolved and reports
// ENDPOINT_NOT_CONFIGURED until the configuration is fixed.
func (s *DiscoveryService) Resolve(ctx context.Context) {
	for _, resource := range []string{ResourceAvailability, ResourceBlackout} {
		explicit, candidates, fallback := s.configured(resource)
		switch {
		case explicit != "":
			s.pin(resource, explicit)
		case s.cfg.ProbeOnStartup:
			path, results, err := s.Discover(ctx, candidates)
			if err != nil {
				s.logger.Error("endpoint discovery failed", zap.String("resource", resource), zap.Any("candidates", results))
				continue
			}
			s.logger.Info("endpoint discovered", zap.String("resource", resource), zap.String("path", path))
			s.pin(resource, path)
		default:
			s.pin(resource, fallback)
		}
	}
}

func (s *DiscoveryService) pin(resource, path string) {
	s.mu.Lock()
	s.resolved[resource] = path
	s.mu.Unlock()
}

// Endpoint returns the pinned path of resource.
func (s *DiscoveryService) Endpoint(resource string) (string, error) {
	s.mu.RLock()
	path, ok := s.resolved[resource]
	s.mu.RUnlock()
	if !ok || path == "" {
		return "", appErrors.Clone(appErrors.ErrEndpointNotConfigured, fmt.Sprintf("no backend endpoint for %s", resource))
	}
	return path, nil
}

// Discover probes candidates in order and returns the first that exists.
func (s *DiscoveryService) Discover(ctx context.Context, candidates []string) (string, []dto.ProbeResult, error) {
	results := make([]dto.ProbeResult, 0, len(candidates))
	for _, path := range candidates {
		result := s.probe(ctx, path)
		results = append(results, result)
		if result.Exists {
			return path, results, nil
		}
	}
	return "", results, appErrors.ErrEndpointNotConfigured
}

// Report probes every candidate of every resource without stopping early.
func (s *DiscoveryService) Report(ctx context.Context) []dto.EndpointReport {
	reports := make([]dto.EndpointReport, 0, 2)
	for _, resource := range []string{ResourceAvailability, ResourceBlackout} {
		explicit, candidates, _ := s.configured(resource)
		report := dto.EndpointReport{Resource: resource, Configured: explicit, Candidates: make([]dto.ProbeResult, 0, len(candidates))}
		if path, err := s.Endpoint(resource); err == nil {
			report.Resolved = path
		}
		for _, path := range candidates {
			report.Candidates = append(report.Candidates, s.probe(ctx, path))
		}
		reports = append(reports, report)
	}
	return reports
}

func (s *DiscoveryService) probe(ctx context.Context, path string) dto.ProbeResult {
	start := time.Now()
	status, err := s.prober.Probe(ctx, nil, path)
	result := dto.ProbeResult{Path: path, StatusCode: status, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Exists = EndpointExists(status)
	if !result.Exists {
		result.Error = fmt.Sprintf("received status %d", status)
	}
	return result
}

// EndpointExists classifies a probe status. Success and authentication
// challenges prove the route exists.
func EndpointExists(status int) bool {
	return (status >= 200 && status < 300) || status == http.StatusUnauthorized || status == http.StatusForbidden
}
