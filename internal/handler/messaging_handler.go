package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/response"
)

type messagingService interface {
	List(ctx context.Context, caller service.Caller, q dto.ConversationListQuery) ([]dto.ConversationView, error)
	Act(ctx context.Context, caller service.Caller, id models.ID, action models.ConversationAction) (*dto.ConversationView, error)
	Open(ctx context.Context, caller service.Caller, id models.ID) (*dto.Thread, error)
	Send(ctx context.Context, caller service.Caller, id models.ID, req dto.SendMessageRequest) (*models.Message, error)
	StartFromRequest(ctx context.Context, caller service.Caller, requestID models.ID) (*dto.ConversationView, bool, error)
	Inbox(ctx context.Context, caller service.Caller) (*dto.Inbox, error)
}

// MessagingHandler serves conversations and the booking inbox.
type MessagingHandler struct {
	service messagingService
}

// NewMessagingHandler constructs the handler.
func NewMessagingHandler(svc messagingService) *MessagingHandler {
	return &MessagingHandler{service: svc}
}

// List godoc
// @Summary The caller's conversations
// @Tags Messaging
// @Produce json
// @Param include_archived query bool false "Include archived conversations"
// @Success 200 {object} response.Envelope
// @Router /conversations [get]
func (h *MessagingHandler) List(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	raw := c.Query("include_archived")
	if raw == "" {
		raw = c.Query("archived")
	}
	archived, _ := strconv.ParseBool(raw)
	views, err := h.service.List(c.Request.Context(), caller, dto.ConversationListQuery{IncludeArchived: archived})
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Open godoc
// @Summary Open a conversation
// @Description Marks the conversation read and returns it with its messages.
// @Tags Messaging
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} response.Envelope
// @Router /conversations/{id} [get]
func (h *MessagingHandler) Open(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	thread, err := h.service.Open(c.Request.Context(), caller, id)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thread, nil)
}

// Act godoc
// @Summary Apply a conversation action
// @Tags Messaging
// @Produce json
// @Param id path int true "Conversation ID"
// @Param action path string true "aceptar, rechazar, archivar or marcar_leidos"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /conversations/{id}/actions/{action} [post]
func (h *MessagingHandler) Act(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.service.Act(c.Request.Context(), caller, id, models.ConversationAction(c.Param("action")))
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Send godoc
// @Summary Send a message
// @Tags Messaging
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param payload body dto.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /conversations/{id}/messages [post]
func (h *MessagingHandler) Send(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}
	msg, err := h.service.Send(c.Request.Context(), caller, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, msg)
}

// Start godoc
// @Summary Open the conversation for a booking request
// @Description Returns the existing conversation or creates one. Responds 201 when created.
// @Tags Messaging
// @Accept json
// @Produce json
// @Param payload body dto.StartConversationRequest true "Booking request"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /conversations [post]
func (h *MessagingHandler) Start(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.StartConversationRequest
	if !bindJSON(c, &req, "solicitud is required") {
		return
	}
	view, created, err := h.service.StartFromRequest(c.Request.Context(), caller, req.BookingRequest)
	if err != nil {
		fail(c, err)
		return
	}
	if created {
		response.Created(c, view)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Inbox godoc
// @Summary Booking requests grouped by status
// @Tags Messaging
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /inbox [get]
func (h *MessagingHandler) Inbox(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	inbox, err := h.service.Inbox(c.Request.Context(), caller)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inbox, nil)
}
