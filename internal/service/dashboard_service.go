package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/logger"
)

// DashboardConfig tunes dashboard behaviour.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the tutor panel summary.
type DashboardService struct {
	api    BackendAPI
	cache  *CacheService
	logger *zap.Logger
	cfg    DashboardConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(api BackendAPI, cache *CacheService, logger *zap.Logger, cfg DashboardConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{api: api, cache: cache, logger: logger, cfg: cfg}
}

// Tutor returns the caller's panel and whether it came from cache. A failure
// to list requests leaves the request figures at zero.
func (s *DashboardService) Tutor(ctx context.Context, caller Caller) (*dto.TutorDashboard, bool, error) {
	if err := requireTutor(caller); err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("dash:tutor:%d", caller.ID())
	var cached dto.TutorDashboard
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	var (
		courses  []models.Course
		requests []models.BookingRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := url.Values{}
		query.Set("tutor", caller.ID().String())
		list, _, err := listFrom[models.Course](gctx, s.api, caller.Creds, coursesPath, query)
		courses = list
		return err
	})
	g.Go(func() error {
		list, _, err := listFrom[models.BookingRequest](gctx, s.api, caller.Creds, bookingRequestsPath, nil)
		if err != nil {
			logger.FromContext(ctx, s.logger).Warn("dashboard could not load booking requests", zap.Error(err))
			return nil
		}
		requests = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, backend.ToAppError(err)
	}

	summary := composeTutorDashboard(caller, courses, requests)
	s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

func composeTutorDashboard(caller Caller, courses []models.Course, requests []models.BookingRequest) *dto.TutorDashboard {
	summary := &dto.TutorDashboard{}
	for _, c := range courses {
		if c.Tutor.ID == caller.ID() && c.IsActive() {
			summary.ActiveCourses++
		}
	}

	var latest *models.BookingRequest
	for i := range requests {
		r := requests[i]
		if r.TutorID() != caller.ID() {
			continue
		}
		summary.TotalRequests++
		if r.Status == models.RequestPending {
			summary.PendingRequests++
		}
		at := r.LastActivity()
		if at.IsZero() {
			continue
		}
		if latest == nil || at.After(latest.LastActivity().Time) {
			latest = &r
		}
	}
	if latest != nil {
		t := latest.LastActivity().Time
		summary.LatestRequestAt = &t
		summary.LatestRequest = latest
	}

	if caller.User.Rating != nil {
		rating := float64(*caller.User.Rating)
		summary.Rating = &rating
	}
	return summary
}
