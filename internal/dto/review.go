package dto

import "github.com/noah-isme/myteacher-portal/internal/models"

// CreateReviewRequest rates a finished booking.
type CreateReviewRequest struct {
	Booking models.ID `json:"reserva" validate:"required,gt=0"`
	Score   int       `json:"puntuacion" validate:"required,min=1,max=5"`
	Comment string    `json:"comentario" validate:"max=1000"`
}
