package dto

import "github.com/noah-isme/myteacher-portal/internal/models"

// ConversationView is a conversation as listed for the current user.
type ConversationView struct {
	models.Conversation
	CounterpartID   models.ID `json:"counterpart_id"`
	CounterpartName string    `json:"counterpart_name"`
	Unread          int       `json:"unread"`
	CanSend         bool      `json:"can_send"`
}

// ConversationListQuery filters the conversation list.
type ConversationListQuery struct {
	IncludeArchived bool
}

// Thread is an opened conversation with its messages.
type Thread struct {
	Conversation ConversationView `json:"conversation"`
	Messages     []models.Message `json:"messages"`
}

// SendMessageRequest is the message composer payload.
type SendMessageRequest struct {
	Content string `json:"contenido" validate:"required,max=4000"`
}

// StartConversationRequest opens or finds the conversation for a booking request.
type StartConversationRequest struct {
	BookingRequest models.ID `json:"solicitud" validate:"required,gt=0"`
}
