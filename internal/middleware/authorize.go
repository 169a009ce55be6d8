package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"affconsole/internal/models"
)

func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			Abort(c, http.StatusForbidden, "forbidden: "+user.Role.Label()+" cannot access this resource")
			return
		}

		c.Next()
	}
}
