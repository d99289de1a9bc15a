package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/session"
	"github.com/noah-isme/myteacher-portal/pkg/jobs"
	"github.com/noah-isme/myteacher-portal/pkg/logger"
	"github.com/noah-isme/myteacher-portal/pkg/signer"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

// Gin context keys set by Session.
const (
	ContextSessionKey     = "portal_session"
	ContextCredentialsKey = "portal_credentials"

	sessionExpiredKey = "portal_session_expired"
	cookiesKey        = "portal_session_cookies"
)

// SessionLoader is the part of session.Manager the middleware needs.
type SessionLoader interface {
	Load(ctx context.Context, id string) (*session.Session, error)
	NeedsRevalidation(sess *session.Session) bool
	Credentials(sess *session.Session) backend.Credentials
}

// Enqueuer accepts background jobs without blocking.
type Enqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// Cookies writes and reads the signed session cookie. The cookie only carries
// the session id.
type Cookies struct {
	name   string
	secure bool
	signer *signer.Signer
}

// NewCookies constructs the cookie codec. ttl bounds the signature lifetime.
func NewCookies(name, secret string, secure bool, ttl time.Duration) *Cookies {
	if name == "" {
		name = "myteacher_session"
	}
	return &Cookies{name: name, secure: secure, signer: signer.New(secret, ttl)}
}

// Name returns the cookie name.
func (k *Cookies) Name() string { return k.name }

// Write sets the cookie for sess.
func (k *Cookies) Write(c *gin.Context, sess *session.Session) error {
	value, expiresAt, err := k.signer.Sign(sess.ID)
	if err != nil {
		return err
	}
	if !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(expiresAt) {
		expiresAt = sess.ExpiresAt
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(k.name, value, maxAge, "/", "", k.secure, true)
	return nil
}

// Clear removes the cookie.
func (k *Cookies) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(k.name, "", -1, "/", "", k.secure, true)
}

// Read returns the session id carried by the request, if any.
func (k *Cookies) Read(c *gin.Context) (string, error) {
	raw, err := c.Cookie(k.name)
	if err != nil || raw == "" {
		return "", http.ErrNoCookie
	}
	return k.signer.Verify(raw)
}

// Session resolves the session cookie into a session on the context. Requests
// without a valid session continue anonymously; RequireSession guards the
// routes that need one. Sessions due for revalidation are queued without
// delaying the request.
func Session(cookies *Cookies, sessions SessionLoader, revalidate Enqueuer, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Set(cookiesKey, cookies)

		id, err := cookies.Read(c)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				c.Set(sessionExpiredKey, true)
				cookies.Clear(c)
			}
			c.Next()
			return
		}

		sess, err := sessions.Load(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, appErrors.ErrSessionExpired) {
				c.Set(sessionExpiredKey, true)
				cookies.Clear(c)
				c.Next()
				return
			}
			abortWithError(c, err)
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Set(ContextCredentialsKey, sessions.Credentials(sess))
		c.Set(logger.UserIDKey, int64(sess.UserID))

		if revalidate != nil && sessions.NeedsRevalidation(sess) {
			if err := revalidate.TryEnqueue(session.Revalidation(sess)); err != nil && !errors.Is(err, jobs.ErrDuplicate) {
				logger.FromContext(c.Request.Context(), log).Debug("session revalidation not queued", zap.Error(err))
			}
		}
		c.Next()
	}
}

// RequireSession rejects anonymous requests. A request whose cookie pointed
// at an expired session gets SESSION_EXPIRED instead of UNAUTHORIZED.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFromContext(c); ok {
			c.Next()
			return
		}
		if c.GetBool(sessionExpiredKey) {
			abortWithError(c, appErrors.ErrSessionExpired)
			return
		}
		abortWithError(c, appErrors.ErrUnauthorized)
	}
}

// SessionFromContext returns the session resolved by Session.
func SessionFromContext(c *gin.Context) (*session.Session, bool) {
	value, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok && sess != nil
}

// CredentialsFromContext returns the backend credentials bound to the session.
func CredentialsFromContext(c *gin.Context) backend.Credentials {
	value, ok := c.Get(ContextCredentialsKey)
	if !ok {
		return nil
	}
	creds, _ := value.(backend.Credentials)
	return creds
}

// ExpireCookie clears the session cookie when err reports an expired session.
func ExpireCookie(c *gin.Context, err error) {
	if !errors.Is(err, appErrors.ErrSessionExpired) {
		return
	}
	if value, ok := c.Get(cookiesKey); ok {
		if cookies, ok := value.(*Cookies); ok {
			cookies.Clear(c)
		}
	}
}
