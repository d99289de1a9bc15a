package dto

import (
	"time"

	"github.com/noah-isme/myteacher-portal/internal/models"
)

// LoginRequest is the login form payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the sign-up form payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionView is what the browser learns about its session. Tokens stay server-side.
type SessionView struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	ValidatedAt   *time.Time   `json:"validated_at,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
}

// RegisterResult reports a successful registration.
type RegisterResult struct {
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
}
