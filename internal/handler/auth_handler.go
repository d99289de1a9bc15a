package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/middleware"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/internal/session"
	"github.com/noah-isme/myteacher-portal/pkg/response"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type authService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*session.Session, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResult, error)
	Logout(ctx context.Context, sess *session.Session) error
	Me(ctx context.Context, sess *session.Session, revalidate bool) (dto.SessionView, error)
}

// AuthHandler signs users in and out and reports the current session.
type AuthHandler struct {
	service authService
	cookies *middleware.Cookies
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookies *middleware.Cookies) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies}
}

// Login godoc
// @Summary Sign in
// @Description Exchanges email and password for a backend session held server-side. The browser receives only a signed session cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	sess, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.cookies.Write(c, sess); err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session cookie"))
		return
	}
	response.JSON(c, http.StatusOK, service.SessionView(sess), nil)
}

// Register godoc
// @Summary Create an account
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Account"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, res)
}

// Logout godoc
// @Summary Sign out
// @Tags Auth
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if sess, ok := middleware.SessionFromContext(c); ok {
		if err := h.service.Logout(c.Request.Context(), sess); err != nil {
			fail(c, err)
			return
		}
	}
	h.cookies.Clear(c)
	response.NoContent(c)
}

// Me godoc
// @Summary Current session
// @Description Returns the signed-in user. With refresh=true the session is validated against the backend first.
// @Tags Auth
// @Produce json
// @Param refresh query bool false "Validate against the backend"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	view, err := h.service.Me(c.Request.Context(), sess, refresh)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
