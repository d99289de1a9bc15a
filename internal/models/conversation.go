package models

import (
	"encoding/json"
	"strings"
)

// ConversationStatus is the gate controlling whether messages may be sent.
type ConversationStatus string

const (
	ConversationPending  ConversationStatus = "pendiente"
	ConversationAccepted ConversationStatus = "aceptada"
	ConversationRejected ConversationStatus = "rechazada"
	ConversationArchived ConversationStatus = "archivada"
)

// Normalize lower-cases and trims the status.
func (s ConversationStatus) Normalize() ConversationStatus {
	return ConversationStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// CanSend is true only for accepted conversations.
func (s ConversationStatus) CanSend() bool {
	return s.Normalize() == ConversationAccepted
}

// IsTerminal reports rejected and archived conversations.
func (s ConversationStatus) IsTerminal() bool {
	switch s.Normalize() {
	case ConversationRejected, ConversationArchived:
		return true
	}
	return false
}

// ConversationAction names a backend action endpoint.
type ConversationAction string

const (
	ActionAccept   ConversationAction = "aceptar"
	ActionReject   ConversationAction = "rechazar"
	ActionArchive  ConversationAction = "archivar"
	ActionMarkRead ConversationAction = "marcar_leidos"
)

// Valid reports whether a is a known action.
func (a ConversationAction) Valid() bool {
	switch a {
	case ActionAccept, ActionReject, ActionArchive, ActionMarkRead:
		return true
	}
	return false
}

// CanTransition returns the status reached by applying action to status.
// Mark-read keeps the status and is allowed everywhere.
func CanTransition(status ConversationStatus, action ConversationAction) (ConversationStatus, bool) {
	status = status.Normalize()
	switch action {
	case ActionMarkRead:
		return status, true
	case ActionAccept:
		if status == ConversationPending {
			return ConversationAccepted, true
		}
	case ActionReject:
		if status == ConversationPending {
			return ConversationRejected, true
		}
	case ActionArchive:
		if status == ConversationAccepted {
			return ConversationArchived, true
		}
	}
	return status, false
}

// InitialConversationStatus derives the status of a conversation created for
// a booking request.
func InitialConversationStatus(request RequestStatus) ConversationStatus {
	if request.Normalize() == RequestAccepted {
		return ConversationAccepted
	}
	return ConversationPending
}

// Conversation is the thread between a tutor and a student about a course.
type Conversation struct {
	ID            ID                 `json:"id"`
	Tutor         Ref[User]          `json:"tutor"`
	Student       Ref[User]          `json:"estudiante"`
	Course        Ref[Course]        `json:"curso"`
	Status        ConversationStatus `json:"estado_solicitud"`
	UnreadTutor   int                `json:"unread_tutor"`
	UnreadStudent int                `json:"unread_estudiante"`
	CreatedAt     Timestamp          `json:"creado_en"`
	UpdatedAt     Timestamp          `json:"actualizado_en"`

	// counters is set when the payload carried both unread fields.
	counters bool
}

func (c *Conversation) Identity() ID { return c.ID }

// UnmarshalJSON reads the status from estado_solicitud, falling back to estado.
func (c *Conversation) UnmarshalJSON(b []byte) error {
	*c = Conversation{}
	type alias Conversation
	aux := struct {
		*alias
		AltStatus     ConversationStatus `json:"estado"`
		UnreadTutor   *int               `json:"unread_tutor"`
		UnreadStudent *int               `json:"unread_estudiante"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.UnreadTutor != nil {
		c.UnreadTutor = *aux.UnreadTutor
	}
	if aux.UnreadStudent != nil {
		c.UnreadStudent = *aux.UnreadStudent
	}
	c.counters = aux.UnreadTutor != nil && aux.UnreadStudent != nil
	if c.Status == "" {
		c.Status = aux.AltStatus
	}
	if c.Status == "" {
		c.Status = ConversationPending
	}
	c.Status = c.Status.Normalize()
	return nil
}

// UnreadFor returns the unread counter that belongs to role.
func (c Conversation) UnreadFor(role Role) int {
	if role.Normalize() == RoleTutor {
		return c.UnreadTutor
	}
	return c.UnreadStudent
}

// Counterpart returns the participant that is not me.
func (c Conversation) Counterpart(me ID) Ref[User] {
	if c.Tutor.ID == me {
		return c.Student
	}
	return c.Tutor
}

// Participant reports whether user is on either side of the conversation.
func (c Conversation) Participant(user ID) bool {
	return user != 0 && (c.Tutor.ID == user || c.Student.ID == user)
}

// FindConversation looks up by the exact (tutor, student, course) triple.
// A zero course only matches conversations without a course.
func FindConversation(conversations []Conversation, tutor, student, course ID) (Conversation, bool) {
	for _, c := range conversations {
		if c.Tutor.ID == tutor && c.Student.ID == student && c.Course.ID == course {
			return c, true
		}
	}
	return Conversation{}, false
}

// MergeConversation overlays a backend action response on the known
// conversation. Fields the response leaves out keep their current value.
func MergeConversation(current, updated Conversation) Conversation {
	if updated.ID == 0 {
		updated.ID = current.ID
	}
	if updated.Tutor.ID == 0 {
		updated.Tutor = current.Tutor
	} else if updated.Tutor.Value == nil && updated.Tutor.ID == current.Tutor.ID {
		updated.Tutor.Value = current.Tutor.Value
	}
	if updated.Student.ID == 0 {
		updated.Student = current.Student
	} else if updated.Student.Value == nil && updated.Student.ID == current.Student.ID {
		updated.Student.Value = current.Student.Value
	}
	if updated.Course.ID == 0 {
		updated.Course = current.Course
	} else if updated.Course.Value == nil && updated.Course.ID == current.Course.ID {
		updated.Course.Value = current.Course.Value
	}
	if !updated.counters {
		updated.UnreadTutor = current.UnreadTutor
		updated.UnreadStudent = current.UnreadStudent
		updated.counters = current.counters
	}
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = current.CreatedAt
	}
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = current.UpdatedAt
	}
	return updated
}

// Message is one entry of a conversation thread.
type Message struct {
	ID           ID        `json:"id"`
	Conversation ID        `json:"conversacion"`
	Sender       Ref[User] `json:"remitente"`
	Content      string    `json:"contenido"`
	CreatedAt    Timestamp `json:"creado_en"`
}

// UnmarshalJSON reads the body from contenido, falling back to texto.
func (m *Message) UnmarshalJSON(b []byte) error {
	*m = Message{}
	type alias Message
	aux := struct {
		*alias
		AltContent string `json:"texto"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if m.Content == "" {
		m.Content = aux.AltContent
	}
	return nil
}
