package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/response"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

// RequireRole restricts a route to users holding one of roles. It must run
// after RequireSession.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r.Normalize()] = struct{}{}
	}
	return func(c *gin.Context) {
		sess, ok := SessionFromContext(c)
		if !ok {
			abortWithError(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[sess.User.Role.Normalize()]; ok {
			c.Next()
			return
		}
		abortWithError(c, appErrors.Clone(appErrors.ErrForbidden, "your role cannot access this resource"))
	}
}

func abortWithError(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
