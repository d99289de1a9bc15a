package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/middleware"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/response"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

func callerFromContext(c *gin.Context) (service.Caller, bool) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		return service.Caller{}, false
	}
	user := sess.User
	if user.ID == 0 {
		user.ID = sess.UserID
	}
	return service.Caller{User: user, Creds: middleware.CredentialsFromContext(c)}, true
}

// requireCaller writes 401 and returns false for anonymous requests.
func requireCaller(c *gin.Context) (service.Caller, bool) {
	caller, ok := callerFromContext(c)
	if !ok {
		fail(c, appErrors.ErrUnauthorized)
	}
	return caller, ok
}

func fail(c *gin.Context, err error) {
	middleware.ExpireCookie(c, err)
	response.Error(c, err)
}

func idParam(c *gin.Context, name string) (models.ID, bool) {
	id, err := models.ParseID(c.Param(name))
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+name))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

func withMeta(c *gin.Context) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta
}
