package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"affconsole/internal/models"
	"affconsole/internal/security"
)

const (
	CurrentUserKey  = "current_user"
	AccessClaimsKey = "access_claims"
)

// Authenticator resolves a bearer token to the user behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, *security.AccessClaims, error)
}

func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			Abort(c, http.StatusUnauthorized, "missing token")
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		user, claims, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			msg := "session not found"
			if errors.Is(err, security.ErrInvalidToken) {
				msg = "invalid or expired token"
			}
			Abort(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(AccessClaimsKey, *claims)
		c.Set(CurrentUserKey, user)

		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// Claims returns the access token claims stored by Auth.
func Claims(c *gin.Context) (security.AccessClaims, bool) {
	v, ok := c.Get(AccessClaimsKey)
	if !ok {
		return security.AccessClaims{}, false
	}
	claims, ok := v.(security.AccessClaims)
	return claims, ok
}

// Abort stops the chain with the error body every endpoint uses.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.Ack{Success: false, Message: message})
}
