package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/export"
	"github.com/noah-isme/myteacher-portal/pkg/response"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type availabilityService interface {
	Summary(ctx context.Context, caller service.Caller) (*dto.AvailabilitySummary, error)
	CreateSlot(ctx context.Context, caller service.Caller, req dto.CreateSlotRequest) (*models.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, caller service.Caller, id models.ID) error
	CreateBlock(ctx context.Context, caller service.Caller, req dto.CreateBlockRequest) (*models.BlockedInterval, error)
	DeleteBlock(ctx context.Context, caller service.Caller, id models.ID) error
	Export(ctx context.Context, caller service.Caller, format export.Format) ([]byte, string, error)
}

// AvailabilityHandler serves the tutor's weekly schedule.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Summary godoc
// @Summary Weekly availability panel
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /tutor/availability [get]
func (h *AvailabilityHandler) Summary(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), caller)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// CreateSlot godoc
// @Summary Add a weekly slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Router /tutor/availability/slots [post]
func (h *AvailabilityHandler) CreateSlot(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.CreateSlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), caller, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, slot)
}

// DeleteSlot godoc
// @Summary Remove a weekly slot
// @Tags Availability
// @Param id path int true "Slot ID"
// @Success 204
// @Router /tutor/availability/slots/{id} [delete]
func (h *AvailabilityHandler) DeleteSlot(c *gin.Context) {
	h.remove(c, h.service.DeleteSlot)
}

// CreateBlock godoc
// @Summary Add a blackout interval
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.CreateBlockRequest true "Interval"
// @Success 201 {object} response.Envelope
// @Router /tutor/availability/blocks [post]
func (h *AvailabilityHandler) CreateBlock(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.CreateBlockRequest
	if !bindJSON(c, &req, "invalid blackout payload") {
		return
	}
	block, err := h.service.CreateBlock(c.Request.Context(), caller, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, block)
}

// DeleteBlock godoc
// @Summary Remove a blackout interval
// @Tags Availability
// @Param id path int true "Interval ID"
// @Success 204
// @Router /tutor/availability/blocks/{id} [delete]
func (h *AvailabilityHandler) DeleteBlock(c *gin.Context) {
	h.remove(c, h.service.DeleteBlock)
}

// Export godoc
// @Summary Download the weekly schedule
// @Tags Availability
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /tutor/availability/export [get]
func (h *AvailabilityHandler) Export(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf"))
		return
	}
	data, filename, err := h.service.Export(c.Request.Context(), caller, format)
	if err != nil {
		fail(c, err)
		return
	}
	response.Attachment(c, format.ContentType(), filename, data)
}

func (h *AvailabilityHandler) remove(c *gin.Context, del func(context.Context, service.Caller, models.ID) error) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := del(c.Request.Context(), caller, id); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}
