package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/session"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type fakeSessions struct {
	created    []*session.Session
	validated  int
	loggedOut  int
	validateFn func(*session.Session) (*session.Session, error)
}

func (f *fakeSessions) Create(_ context.Context, access, refresh string, user models.User) (*session.Session, error) {
	sess := &session.Session{ID: "sess-1", UserID: user.ID, AccessToken: access, RefreshToken: refresh, User: user, ValidatedAt: time.Now()}
	f.created = append(f.created, sess)
	return sess, nil
}

func (f *fakeSessions) Validate(_ context.Context, sess *session.Session) (*session.Session, error) {
	f.validated++
	if f.validateFn != nil {
		return f.validateFn(sess)
	}
	return sess, nil
}

func (f *fakeSessions) Logout(context.Context, *session.Session) error {
	f.loggedOut++
	return nil
}

func TestLoginRequiresFields(t *testing.T) {
	api := newFakeAPI()
	svc := NewAuthService(api, &fakeSessions{}, nil)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "  ", Password: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "Por favor, completa todos los campos", err.Error())
	assert.Empty(t, api.calls)
}

func TestLoginSurfacesBackendDetail(t *testing.T) {
	api := newFakeAPI().fail(http.MethodPost, loginPath, http.StatusUnauthorized, "Credenciales inválidas")
	svc := NewAuthService(api, &fakeSessions{}, nil)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: "bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Credenciales inválidas", appErr.Message)
}

func TestLoginUpstreamFailureIsNotCredentials(t *testing.T) {
	api := newFakeAPI().fail(http.MethodPost, loginPath, http.StatusBadGateway, "")
	svc := NewAuthService(api, &fakeSessions{}, nil)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginCreatesSession(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, loginPath, map[string]any{
		"access": "a1", "refresh": "r1", "user": map[string]any{"id": 9, "username": "ana", "rol": "Tutor"},
	})
	sessions := &fakeSessions{}
	svc := NewAuthService(api, sessions, nil)

	sess, err := svc.Login(context.Background(), dto.LoginRequest{Email: " ana@example.com ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a1", sess.AccessToken)
	assert.Equal(t, models.RoleTutor, sess.User.Role)
	posts := api.callsTo(http.MethodPost, loginPath)
	require.Len(t, posts, 1)
	assert.Equal(t, "ana@example.com", posts[0].Body["email"])
}

func TestLoginWithoutTokensFails(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, loginPath, map[string]any{"user": map[string]any{"id": 9}})
	sessions := &fakeSessions{}
	svc := NewAuthService(api, sessions, nil)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "a@b.co", Password: "pw"})
	assert.ErrorIs(t, err, appErrors.ErrUpstream)
	assert.Empty(t, sessions.created)
}

func TestRegister(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, registerPath, map[string]any{"id": 21, "username": "nuevo", "email": "n@x.co"})
	svc := NewAuthService(api, &fakeSessions{}, nil)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "n@x.co", Password: "pw"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	res, err := svc.Register(context.Background(), dto.RegisterRequest{Username: "nuevo", Email: "n@x.co", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Registro exitoso, ahora puedes iniciar sesión.", res.Message)
	require.NotNil(t, res.User)
	assert.Equal(t, models.ID(21), res.User.ID)
}

func TestMeRevalidatesOnRequest(t *testing.T) {
	sessions := &fakeSessions{validateFn: func(*session.Session) (*session.Session, error) {
		return nil, appErrors.ErrSessionExpired
	}}
	svc := NewAuthService(newFakeAPI(), sessions, nil)
	sess := &session.Session{ID: "s", User: models.User{ID: 9}, ExpiresAt: time.Now().Add(time.Hour)}

	view, err := svc.Me(context.Background(), sess, false)
	require.NoError(t, err)
	assert.True(t, view.Authenticated)
	assert.NotNil(t, view.ExpiresAt)
	assert.Zero(t, sessions.validated)

	_, err = svc.Me(context.Background(), sess, true)
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)
	assert.Equal(t, 1, sessions.validated)

	anonymous, err := svc.Me(context.Background(), nil, true)
	require.NoError(t, err)
	assert.False(t, anonymous.Authenticated)
}

func TestLogoutDelegates(t *testing.T) {
	sessions := &fakeSessions{}
	svc := NewAuthService(newFakeAPI(), sessions, nil)
	require.NoError(t, svc.Logout(context.Background(), &session.Session{ID: "s"}))
	assert.Equal(t, 1, sessions.loggedOut)
}
