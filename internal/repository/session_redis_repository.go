package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/myteacher-portal/internal/session"
)

const sessionKeyPrefix = "portal:session:"

// RedisSessionRepository stores sessions as JSON values whose TTL tracks the
// session expiry.
type RedisSessionRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSessionRepository constructs the repository.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, now: time.Now}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (r *RedisSessionRepository) ttl(sess *session.Session) (time.Duration, error) {
	if sess.ExpiresAt.IsZero() {
		return 0, nil
	}
	ttl := sess.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return 0, session.ErrNotFound
	}
	return ttl, nil
}

// Create stores a new session.
func (r *RedisSessionRepository) Create(ctx context.Context, sess *session.Session) error {
	ttl, err := r.ttl(sess)
	if err != nil {
		return fmt.Errorf("create session %s: already expired", sess.ID)
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	if err := r.client.Set(ctx, sessionKey(sess.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", sess.ID, err)
	}
	return nil
}

// Get loads a session.
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session %s: %w", id, err)
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

// Update rewrites a session only when its key still exists.
func (r *RedisSessionRepository) Update(ctx context.Context, sess *session.Session) error {
	ttl, err := r.ttl(sess)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	ok, err := r.client.SetXX(ctx, sessionKey(sess.ID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis update session %s: %w", sess.ID, err)
	}
	if !ok {
		return session.ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}
