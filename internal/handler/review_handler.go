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

type reviewService interface {
	Create(ctx context.Context, caller service.Caller, req dto.CreateReviewRequest) (*models.Review, error)
	Sent(ctx context.Context, caller service.Caller) ([]models.Review, *models.Pagination, error)
	Received(ctx context.Context, caller service.Caller) ([]models.Review, *models.Pagination, error)
}

// ReviewHandler serves booking reviews.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(svc reviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// Create godoc
// @Summary Rate a booking
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body dto.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.CreateReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	review, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"message": service.ReviewSubmittedMessage, "review": review})
}

// Sent godoc
// @Summary Reviews written by the caller
// @Tags Reviews
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reviews/sent [get]
func (h *ReviewHandler) Sent(c *gin.Context) {
	h.list(c, h.service.Sent)
}

// Received godoc
// @Summary Reviews about the caller
// @Tags Reviews
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reviews/received [get]
func (h *ReviewHandler) Received(c *gin.Context) {
	h.list(c, h.service.Received)
}

func (h *ReviewHandler) list(c *gin.Context, load func(context.Context, service.Caller) ([]models.Review, *models.Pagination, error)) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	reviews, page, err := load(c.Request.Context(), caller)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, page)
}
