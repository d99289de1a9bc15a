// Package session keeps the browser's backend credentials server-side and
// re-validates them against the backend's current-user endpoint.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/myteacher-portal/internal/models"
)

// ErrNotFound is returned by stores for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is one signed-in browser.
type Session struct {
	ID           string      `json:"id" db:"id"`
	UserID       models.ID   `json:"user_id" db:"user_id"`
	AccessToken  string      `json:"access_token" db:"access_token"`
	RefreshToken string      `json:"refresh_token" db:"refresh_token"`
	User         models.User `json:"user" db:"-"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	ValidatedAt  time.Time   `json:"validated_at" db:"updated_at"`
	ExpiresAt    time.Time   `json:"expires_at" db:"expires_at"`
}

// Clone returns a copy safe to mutate independently.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions. Update must fail with ErrNotFound when the session
// no longer exists so that a late validation cannot resurrect a logged-out
// session.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}

// Event names a session lifecycle transition.
type Event string

const (
	EventLogin     Event = "login"
	EventValidated Event = "validated"
	EventRefreshed Event = "refreshed"
	EventExpired   Event = "expired"
	EventLogout    Event = "logout"
)

// Listener observes session events. The session passed in is a snapshot.
type Listener func(ctx context.Context, event Event, sess *Session)
