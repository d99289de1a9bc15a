package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the marketplace role of a backend user.
type Role string

const (
	RoleTutor   Role = "tutor"
	RoleStudent Role = "estudiante"
)

// Normalize lower-cases and trims the role.
func (r Role) Normalize() Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}

// User is the backend user record. Keys the portal does not model are kept in
// Extra so that merging a /me/ response never drops data.
type User struct {
	ID        ID
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      Role
	Rating    *Number
	Extra     map[string]json.RawMessage
}

var userKnownKeys = map[string]struct{}{
	"id": {}, "pk": {}, "user_id": {}, "id_usuario": {},
	"username": {}, "email": {}, "first_name": {}, "last_name": {},
	"rol": {}, "calificacion_promedio": {},
}

// Identity implements the Ref lookup.
func (u *User) Identity() ID { return u.ID }

// UnmarshalJSON reads the id from id, pk, user_id or id_usuario in that order.
func (u *User) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*u = User{}

	for _, key := range []string{"id", "pk", "user_id", "id_usuario"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var id ID
		if err := id.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("user %s: %w", key, err)
		}
		if id != 0 {
			u.ID = id
			break
		}
	}

	decodeString(fields, "username", &u.Username)
	decodeString(fields, "email", &u.Email)
	decodeString(fields, "first_name", &u.FirstName)
	decodeString(fields, "last_name", &u.LastName)
	var role string
	decodeString(fields, "rol", &role)
	u.Role = Role(role).Normalize()

	if raw, ok := fields["calificacion_promedio"]; ok {
		var n Number
		if err := n.UnmarshalJSON(raw); err == nil && string(raw) != "null" {
			u.Rating = &n
		}
	}

	for key, raw := range fields {
		if _, known := userKnownKeys[key]; known {
			continue
		}
		if u.Extra == nil {
			u.Extra = make(map[string]json.RawMessage)
		}
		u.Extra[key] = raw
	}
	return nil
}

// MarshalJSON writes the unknown keys back alongside the modelled ones.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+8)
	for k, v := range u.Extra {
		out[k] = v
	}
	out["id"] = u.ID
	out["username"] = u.Username
	out["email"] = u.Email
	out["first_name"] = u.FirstName
	out["last_name"] = u.LastName
	out["rol"] = u.Role
	if u.Rating != nil {
		out["calificacion_promedio"] = float64(*u.Rating)
	}
	return json.Marshal(out)
}

// Merge overlays the non-empty fields of incoming onto u, shallowly, the way
// a stored profile absorbs a fresh /me/ response.
func (u User) Merge(incoming User) User {
	merged := u
	if incoming.ID != 0 {
		merged.ID = incoming.ID
	}
	if incoming.Username != "" {
		merged.Username = incoming.Username
	}
	if incoming.Email != "" {
		merged.Email = incoming.Email
	}
	if incoming.FirstName != "" {
		merged.FirstName = incoming.FirstName
	}
	if incoming.LastName != "" {
		merged.LastName = incoming.LastName
	}
	if incoming.Role != "" {
		merged.Role = incoming.Role
	}
	if incoming.Rating != nil {
		merged.Rating = incoming.Rating
	}
	if len(u.Extra) > 0 || len(incoming.Extra) > 0 {
		merged.Extra = make(map[string]json.RawMessage, len(u.Extra)+len(incoming.Extra))
		for k, v := range u.Extra {
			merged.Extra[k] = v
		}
		for k, v := range incoming.Extra {
			merged.Extra[k] = v
		}
	}
	return merged
}

// IsTutor reports whether the user acts as a tutor.
func (u User) IsTutor() bool { return u.Role == RoleTutor }

// IsStudent reports whether the user acts as a student.
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// DisplayName prefers the full name, then username, then email.
func (u User) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	switch {
	case full != "":
		return full
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	default:
		return UserPlaceholder(u.ID)
	}
}

// TutorLabel is the name shown on course cards.
func (u User) TutorLabel() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	default:
		return TutorPlaceholder(u.ID)
	}
}

// UserPlaceholder labels a participant whose profile could not be loaded.
func UserPlaceholder(id ID) string { return fmt.Sprintf("Usuario %d", id) }

// TutorPlaceholder labels a course tutor whose profile could not be loaded.
func TutorPlaceholder(id ID) string { return fmt.Sprintf("Tutor %d", id) }

func decodeString(fields map[string]json.RawMessage, key string, dst *string) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dst = s
	}
}
