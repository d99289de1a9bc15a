package models

import (
	"encoding/json"
	"strings"
)

// RequestStatus is the lifecycle state of a booking request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pendiente"
	RequestAccepted  RequestStatus = "aceptada"
	RequestRejected  RequestStatus = "rechazada"
	RequestCancelled RequestStatus = "cancelada"
	RequestFinished  RequestStatus = "finalizada"
)

// Normalize lower-cases and trims the status.
func (s RequestStatus) Normalize() RequestStatus {
	return RequestStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// IsTerminal reports whether no further transitions are possible.
func (s RequestStatus) IsTerminal() bool {
	switch s.Normalize() {
	case RequestRejected, RequestCancelled, RequestFinished:
		return true
	}
	return false
}

// IsActive is the complement of IsTerminal. Unknown states count as active.
func (s RequestStatus) IsActive() bool {
	return !s.IsTerminal()
}

// BookingRequest is a student's request to take a course.
type BookingRequest struct {
	ID           ID            `json:"id"`
	Course       Ref[Course]   `json:"curso"`
	Student      Ref[User]     `json:"estudiante"`
	Tutor        Ref[User]     `json:"tutor"`
	ProposedDate string        `json:"fecha_propuesta"`
	Modality     Modality      `json:"modalidad"`
	DurationMin  int           `json:"duracion,omitempty"`
	Message      string        `json:"mensaje,omitempty"`
	Status       RequestStatus `json:"estado"`
	CreatedAt    Timestamp     `json:"creado_en"`
	UpdatedAt    Timestamp     `json:"actualizado_en"`
}

func (r *BookingRequest) Identity() ID { return r.ID }

// UnmarshalJSON reads the status from estado, falling back to estado_solicitud.
func (r *BookingRequest) UnmarshalJSON(b []byte) error {
	*r = BookingRequest{}
	type alias BookingRequest
	aux := struct {
		*alias
		AltStatus RequestStatus `json:"estado_solicitud"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if r.Status == "" {
		r.Status = aux.AltStatus
	}
	if r.Status == "" {
		r.Status = RequestPending
	}
	r.Status = r.Status.Normalize()
	return nil
}

// TutorID resolves the tutor from the request or, failing that, the embedded course.
func (r BookingRequest) TutorID() ID {
	if r.Tutor.ID != 0 {
		return r.Tutor.ID
	}
	if r.Course.Value != nil {
		return r.Course.Value.Tutor.ID
	}
	return 0
}

// LastActivity is creado_en, or actualizado_en when creation time is missing.
func (r BookingRequest) LastActivity() Timestamp {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.UpdatedAt
}

// FindActiveRequest returns the first non-terminal request for course. A
// request matches the student when its student is the given one or unknown;
// a zero student matches every request, which is how the backend's own
// per-user listing is consumed.
func FindActiveRequest(requests []BookingRequest, student, course ID) (BookingRequest, bool) {
	for _, r := range requests {
		if r.Course.ID != course {
			continue
		}
		if student != 0 && r.Student.ID != 0 && r.Student.ID != student {
			continue
		}
		if r.Status.IsActive() {
			return r, true
		}
	}
	return BookingRequest{}, false
}
