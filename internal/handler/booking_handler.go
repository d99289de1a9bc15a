package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/response"
)

type bookingService interface {
	Requests(ctx context.Context, caller service.Caller, status models.RequestStatus) ([]models.BookingRequest, error)
	Status(ctx context.Context, caller service.Caller, courseID models.ID) (*dto.BookingStatus, error)
	Submit(ctx context.Context, caller service.Caller, req dto.SubmitBookingRequest) (*dto.BookingSubmitted, error)
	SetStatus(ctx context.Context, caller service.Caller, id models.ID, next models.RequestStatus) (*models.BookingRequest, error)
}

// BookingHandler serves booking requests.
type BookingHandler struct {
	service bookingService
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(svc bookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// List godoc
// @Summary The caller's booking requests
// @Tags Bookings
// @Produce json
// @Param estado query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /booking-requests [get]
func (h *BookingHandler) List(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	requests, err := h.service.Requests(c.Request.Context(), caller, models.RequestStatus(c.Query("estado")))
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Status godoc
// @Summary Booking form state for a course
// @Description Reports whether the caller already has an active request and which modalities may be picked.
// @Tags Bookings
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/booking-status [get]
func (h *BookingHandler) Status(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), caller, courseID)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Submit godoc
// @Summary Request a course
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.SubmitBookingRequest true "Request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /booking-requests [post]
func (h *BookingHandler) Submit(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.SubmitBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	res, err := h.service.Submit(c.Request.Context(), caller, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, res)
}

// SetStatus godoc
// @Summary Change a request's status
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.UpdateBookingStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /booking-requests/{id} [patch]
func (h *BookingHandler) SetStatus(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBookingStatusRequest
	if !bindJSON(c, &req, "estado is required") {
		return
	}
	updated, err := h.service.SetStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
