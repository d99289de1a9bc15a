package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/session"
	"github.com/noah-isme/myteacher-portal/pkg/logger"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

const (
	loginPath    = "/login/"
	registerPath = "/register/"

	missingFieldsMessage = "Por favor, completa todos los campos"
	loginFailedMessage   = "Error al iniciar sesión"
	registeredMessage    = "Registro exitoso, ahora puedes iniciar sesión."
)

// SessionManager is the part of session.Manager the auth flow drives.
type SessionManager interface {
	Create(ctx context.Context, access, refresh string, user models.User) (*session.Session, error)
	Validate(ctx context.Context, sess *session.Session) (*session.Session, error)
	Logout(ctx context.Context, sess *session.Session) error
}

// AuthService signs users in and out against the backend.
type AuthService struct {
	api      BackendAPI
	sessions SessionManager
	logger   *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(api BackendAPI, sessions SessionManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{api: api, sessions: sessions, logger: logger}
}

type loginResponse struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    models.User `json:"user"`
}

// Login exchanges credentials for backend tokens and opens a session.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*session.Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, missingFieldsMessage)
	}

	var res loginResponse
	body := map[string]string{"email": req.Email, "password": req.Password}
	if err := s.api.Post(ctx, nil, loginPath, body, &res); err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			message := apiErr.Detail
			if message == "" || message == "Error" {
				message = loginFailedMessage
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, message)
		}
		return nil, backend.ToAppError(err)
	}
	if res.Access == "" {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "login response did not include tokens")
	}

	sess, err := s.sessions.Create(ctx, res.Access, res.Refresh, res.User)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.logger).Info("user signed in", zap.Int64("user_id", int64(sess.UserID)), zap.String("role", string(sess.User.Role)))
	return sess, nil
}

// Register creates a backend account. It does not sign the user in.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, missingFieldsMessage)
	}

	var created models.User
	body := map[string]string{"username": req.Username, "email": req.Email, "password": req.Password}
	if err := s.api.Post(ctx, nil, registerPath, body, &created); err != nil {
		return nil, backend.ToAppError(err)
	}
	result := &dto.RegisterResult{Message: registeredMessage}
	if created.ID != 0 || created.Email != "" {
		result.User = &created
	}
	return result, nil
}

// Logout removes the session.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	return s.sessions.Logout(ctx, sess)
}

// Me describes the session, validating it against the backend first when
// revalidate is set.
func (s *AuthService) Me(ctx context.Context, sess *session.Session, revalidate bool) (dto.SessionView, error) {
	if sess == nil {
		return dto.SessionView{}, nil
	}
	if revalidate {
		validated, err := s.sessions.Validate(ctx, sess)
		if err != nil {
			return dto.SessionView{}, err
		}
		sess = validated
	}
	return SessionView(sess), nil
}

// SessionView renders what the browser may know about sess.
func SessionView(sess *session.Session) dto.SessionView {
	if sess == nil {
		return dto.SessionView{}
	}
	user := sess.User
	validated := sess.ValidatedAt
	view := dto.SessionView{Authenticated: true, User: &user, ValidatedAt: &validated}
	if !sess.ExpiresAt.IsZero() {
		expires := sess.ExpiresAt.In(time.UTC)
		view.ExpiresAt = &expires
	}
	return view
}
