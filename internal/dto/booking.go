package dto

import "github.com/noah-isme/myteacher-portal/internal/models"

// SubmitBookingRequest is the booking request form.
type SubmitBookingRequest struct {
	Course       models.ID `json:"curso"`
	ProposedDate string    `json:"fecha_propuesta" validate:"required,datetime=2006-01-02"`
	Modality     string    `json:"modalidad" validate:"required,oneof=presencial virtual"`
	DurationMin  int       `json:"duracion,omitempty" validate:"omitempty,min=15"`
	Message      string    `json:"mensaje,omitempty" validate:"max=1000"`
}

// BookingSubmitted confirms a created request.
type BookingSubmitted struct {
	Message string                 `json:"message"`
	Request *models.BookingRequest `json:"request,omitempty"`
}

// BookingStatus tells the form whether it must be disabled for a course.
type BookingStatus struct {
	CourseID        models.ID            `json:"course_id"`
	HasActive       bool                 `json:"has_active_request"`
	Status          models.RequestStatus `json:"status,omitempty"`
	Notice          string               `json:"notice,omitempty"`
	ModalityOptions []models.Modality    `json:"modality_options,omitempty"`
}

// InboxEntry is a booking request annotated with its conversation.
type InboxEntry struct {
	Request              models.BookingRequest `json:"request"`
	CourseName           string                `json:"course_name"`
	ConversationID       models.ID             `json:"conversation_id,omitempty"`
	ConversationAccepted bool                  `json:"conversation_accepted"`
}

// Inbox groups the student's requests by status.
type Inbox struct {
	Pending  []InboxEntry `json:"pending"`
	Accepted []InboxEntry `json:"accepted"`
}

// UpdateBookingStatusRequest moves a request to a new status.
type UpdateBookingStatusRequest struct {
	Status models.RequestStatus `json:"estado" binding:"required"`
}
