package dto

import (
	"time"

	"github.com/noah-isme/myteacher-portal/internal/models"
)

// TutorDashboard summarises the tutor panel.
type TutorDashboard struct {
	ActiveCourses   int                    `json:"active_courses"`
	PendingRequests int                    `json:"pending_requests"`
	TotalRequests   int                    `json:"total_requests"`
	LatestRequestAt *time.Time             `json:"latest_request_at,omitempty"`
	LatestRequest   *models.BookingRequest `json:"latest_request,omitempty"`
	Rating          *float64               `json:"rating,omitempty"`
}

// SystemMetrics is the diagnostics snapshot of gateway activity.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	UpstreamCalls            uint64    `json:"upstream_calls"`
	UpstreamErrors           uint64    `json:"upstream_errors"`
	RefreshFailures          uint64    `json:"refresh_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
