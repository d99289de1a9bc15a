package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/jobs"
	"github.com/noah-isme/myteacher-portal/pkg/logger"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

const mePath = "/me/"

// JobTypeRevalidate is the jobs.Job type handled by Manager.RevalidateJob.
const JobTypeRevalidate = "session.revalidate"

// Backend is the subset of backend.Client the manager needs.
type Backend interface {
	Get(ctx context.Context, creds backend.Credentials, path string, query url.Values, out any) error
}

// Config tunes a Manager.
type Config struct {
	TTL                time.Duration
	RevalidateInterval time.Duration
	Logger             *zap.Logger
	Now                func() time.Time
}

// Manager owns session lifecycle: creation at login, hydration per request,
// validation against the backend, refresh bookkeeping and teardown.
type Manager struct {
	store   Store
	backend Backend
	cfg     Config
	logger  *zap.Logger

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewManager builds a Manager.
func NewManager(store Store, client Backend, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.RevalidateInterval <= 0 {
		cfg.RevalidateInterval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		store:     store,
		backend:   client,
		cfg:       cfg,
		logger:    cfg.Logger,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) emit(ctx context.Context, event Event, sess *Session) {
	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, event, sess.Clone())
	}
}

// Create persists a new session for a successful login.
func (m *Manager) Create(ctx context.Context, access, refresh string, user models.User) (*Session, error) {
	if access == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login response did not include an access token")
	}
	now := m.cfg.Now().UTC()
	if user.ID == 0 {
		user.ID = userIDFromToken(access)
	}
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
		CreatedAt:    now,
		ValidatedAt:  now,
		ExpiresAt:    m.expiryFor(refresh, now),
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	m.emit(ctx, EventLogin, sess)
	return sess, nil
}

// Load hydrates a session by id.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, appErrors.ErrSessionExpired
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if sess.Expired(m.cfg.Now()) {
		_ = m.store.Delete(ctx, id)
		m.emit(ctx, EventExpired, sess)
		return nil, appErrors.ErrSessionExpired
	}
	return sess, nil
}

// NeedsRevalidation reports whether sess was last validated longer ago than
// the configured interval.
func (m *Manager) NeedsRevalidation(sess *Session) bool {
	if sess == nil {
		return false
	}
	return m.cfg.Now().Sub(sess.ValidatedAt) >= m.cfg.RevalidateInterval
}

// Validate asks the backend who the session belongs to and merges the answer
// into the stored user. Auth failures that survive a refresh tear the session
// down. Transport and server failures keep the last known user. If ctx is
// cancelled before the backend answers, nothing is written.
func (m *Manager) Validate(ctx context.Context, sess *Session) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return sess, err
	}
	if sess == nil {
		return nil, appErrors.ErrSessionExpired
	}
	if sess.AccessToken == "" {
		return sess, nil
	}
	log := logger.FromContext(ctx, m.logger).With(zap.String("session_id", sess.ID))

	creds := m.bind(sess)
	var me models.User
	err := m.backend.Get(ctx, creds, mePath, nil, &me)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return sess, ctxErr
	}
	if err != nil {
		if backend.IsAuthFailure(err) {
			creds.teardown(ctx)
			return nil, appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
		}
		if creds.tornDown() {
			return nil, appErrors.ErrSessionExpired
		}
		log.Warn("session validation skipped, keeping last known user", zap.Error(err))
		return creds.snapshot(), nil
	}

	updated := creds.snapshot()
	updated.User = updated.User.Merge(me)
	if updated.User.ID != 0 {
		updated.UserID = updated.User.ID
	}
	updated.ValidatedAt = m.cfg.Now().UTC()
	if err := m.store.Update(ctx, updated); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	m.emit(ctx, EventValidated, updated)
	return updated, nil
}

// Logout removes the session and notifies listeners.
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	m.emit(ctx, EventLogout, sess)
	return nil
}

// Credentials binds sess to the backend client's refresh callbacks.
func (m *Manager) Credentials(sess *Session) backend.Credentials {
	return m.bind(sess)
}

// RevalidateJob is a jobs.Handler whose payload is a session id.
func (m *Manager) RevalidateJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok || id == "" {
		return nil
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !m.NeedsRevalidation(sess) {
		return nil
	}
	_, err = m.Validate(ctx, sess)
	if err != nil && errors.Is(err, appErrors.ErrSessionExpired) {
		return nil
	}
	return err
}

// Revalidation builds the queue job for sess.
func Revalidation(sess *Session) jobs.Job {
	return jobs.Job{
		ID:      uuid.NewString(),
		Key:     sess.ID,
		Type:    JobTypeRevalidate,
		Payload: sess.ID,
	}
}

func (m *Manager) expire(ctx context.Context, sess *Session) {
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		logger.FromContext(ctx, m.logger).Error("failed to delete expired session", zap.String("session_id", sess.ID), zap.Error(err))
	}
	m.emit(ctx, EventExpired, sess)
}

func (m *Manager) expiryFor(refresh string, now time.Time) time.Time {
	if exp, ok := tokenExpiry(refresh); ok && exp.After(now) {
		return exp.UTC()
	}
	return now.Add(m.cfg.TTL)
}

func (m *Manager) bind(sess *Session) *boundCredentials {
	return &boundCredentials{m: m, sess: sess.Clone()}
}

// boundCredentials adapts one session to backend.Credentials.
type boundCredentials struct {
	m *Manager

	mu   sync.Mutex
	sess *Session
	torn bool
}

func (b *boundCredentials) AccessToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess.AccessToken
}

func (b *boundCredentials) RefreshToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess.RefreshToken
}

func (b *boundCredentials) TokenRefreshed(ctx context.Context, pair backend.TokenPair) {
	b.mu.Lock()
	b.sess.AccessToken = pair.Access
	if pair.Refresh != "" {
		b.sess.RefreshToken = pair.Refresh
	}
	b.sess.ExpiresAt = b.m.expiryFor(b.sess.RefreshToken, b.m.cfg.Now())
	snapshot := b.sess.Clone()
	b.mu.Unlock()

	if err := b.m.store.Update(ctx, snapshot); err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.FromContext(ctx, b.m.logger).Error("failed to persist refreshed tokens", zap.String("session_id", snapshot.ID), zap.Error(err))
		}
		return
	}
	b.m.emit(ctx, EventRefreshed, snapshot)
}

// RefreshFailed tears the session down when the backend rejected the refresh
// token. An unreachable backend leaves it alone.
func (b *boundCredentials) RefreshFailed(ctx context.Context, err error) {
	if !errors.Is(err, backend.ErrRefreshRejected) && !errors.Is(err, backend.ErrNoRefreshToken) {
		return
	}
	b.teardown(ctx)
}

// teardown deletes the session once, however many callers observe the failure.
func (b *boundCredentials) teardown(ctx context.Context) {
	b.mu.Lock()
	if b.torn {
		b.mu.Unlock()
		return
	}
	b.torn = true
	snapshot := b.sess.Clone()
	b.mu.Unlock()
	b.m.expire(ctx, snapshot)
}

func (b *boundCredentials) snapshot() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess.Clone()
}

func (b *boundCredentials) tornDown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.torn
}

func tokenExpiry(token string) (time.Time, bool) {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// userIDFromToken reads the user_id claim simplejwt puts in access tokens.
func userIDFromToken(token string) models.ID {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return 0
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return models.ID(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return models.ID(n)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return models.ID(n)
		}
	}
	return 0
}

// The gateway never verifies backend tokens; it only reads their claims.
func unverifiedClaims(token string) (jwt.MapClaims, bool) {
	if token == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// String implements fmt.Stringer without leaking tokens.
func (s *Session) String() string {
	if s == nil {
		return "<nil session>"
	}
	return fmt.Sprintf("session %s (user %d)", s.ID, s.UserID)
}
