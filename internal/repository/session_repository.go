package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/session"
)

// QueryObserver receives query timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// SessionRepository persists sessions in the portal_sessions table.
type SessionRepository struct {
	db       *sqlx.DB
	observer QueryObserver
	now      func() time.Time
}

// NewSessionRepository constructs the repository. observer may be nil.
func NewSessionRepository(db *sqlx.DB, observer QueryObserver) *SessionRepository {
	return &SessionRepository{db: db, observer: observer, now: time.Now}
}

type sessionRow struct {
	ID           string    `db:"id"`
	UserID       int64     `db:"user_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	Profile      string    `db:"profile"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	ExpiresAt    time.Time `db:"expires_at"`
}

func toRow(sess *session.Session) (sessionRow, error) {
	profile, err := json.Marshal(sess.User)
	if err != nil {
		return sessionRow{}, fmt.Errorf("encode session profile: %w", err)
	}
	return sessionRow{
		ID:           sess.ID,
		UserID:       int64(sess.UserID),
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Profile:      string(profile),
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.ValidatedAt,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

func (r sessionRow) session() (*session.Session, error) {
	sess := &session.Session{
		ID:           r.ID,
		UserID:       models.ID(r.UserID),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		CreatedAt:    r.CreatedAt,
		ValidatedAt:  r.UpdatedAt,
		ExpiresAt:    r.ExpiresAt,
	}
	if len(r.Profile) > 0 {
		if err := json.Unmarshal([]byte(r.Profile), &sess.User); err != nil {
			return nil, fmt.Errorf("decode session profile: %w", err)
		}
	}
	return sess, nil
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	row, err := toRow(sess)
	if err != nil {
		return err
	}
	const query = `INSERT INTO portal_sessions (id, user_id, access_token, refresh_token, profile, created_at, updated_at, expires_at)
VALUES (:id, :user_id, :access_token, :refresh_token, :profile, :created_at, :updated_at, :expires_at)`
	defer r.observe("session_create", time.Now())
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get returns an unexpired session.
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	const query = `SELECT id, user_id, access_token, refresh_token, profile, created_at, updated_at, expires_at
FROM portal_sessions WHERE id = $1 AND expires_at > $2`
	defer r.observe("session_get", time.Now())
	var row sessionRow
	if err := r.db.GetContext(ctx, &row, query, id, r.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return row.session()
}

// Update overwrites tokens, profile and timestamps of an existing session.
func (r *SessionRepository) Update(ctx context.Context, sess *session.Session) error {
	row, err := toRow(sess)
	if err != nil {
		return err
	}
	const query = `UPDATE portal_sessions
SET user_id = :user_id, access_token = :access_token, refresh_token = :refresh_token,
    profile = :profile, updated_at = :updated_at, expires_at = :expires_at
WHERE id = :id`
	defer r.observe("session_update", time.Now())
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	defer r.observe("session_delete", time.Now())
	if _, err := r.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions whose expiry has passed and reports how many.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	defer r.observe("session_purge", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE expires_at <= $1`, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *SessionRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}
