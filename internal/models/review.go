package models

// Review is a student's rating of a finished booking.
type Review struct {
	ID        ID        `json:"id,omitempty"`
	Booking   ID        `json:"reserva"`
	Score     int       `json:"puntuacion"`
	Comment   string    `json:"comentario,omitempty"`
	Student   Ref[User] `json:"estudiante"`
	Tutor     Ref[User] `json:"tutor"`
	CreatedAt Timestamp `json:"creado_en"`
}
