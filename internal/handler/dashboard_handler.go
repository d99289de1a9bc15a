package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/middleware"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/response"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type dashboardService interface {
	Tutor(ctx context.Context, caller service.Caller) (*dto.TutorDashboard, bool, error)
}

// DashboardHandler wires the tutor panel to HTTP.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Tutor godoc
// @Summary Tutor panel summary
// @Tags Tutor
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutor/dashboard [get]
func (h *DashboardHandler) Tutor(c *gin.Context) {
	if h.service == nil {
		fail(c, appErrors.ErrInternal)
		return
	}
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Tutor(c.Request.Context(), caller)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := withMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
