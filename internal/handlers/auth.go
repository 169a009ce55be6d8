package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"affconsole/internal/middleware"
	"affconsole/internal/models"
)

func (h HandlerSet) Login(c *gin.Context) {
	var creds models.Credentials
	if !bind(c, &creds) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), creds)
	if err != nil {
		h.log.Warn().Str("username", creds.Username).Str("client_ip", c.ClientIP()).Msg("login rejected")
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Refresh issues a new access token. The refresh token is not rotated.
func (h HandlerSet) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HandlerSet) Logout(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	if err := h.auth.Logout(c.Request.Context(), claims.SessionID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Ack{Success: true, Message: "logged out"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	respond(c, http.StatusOK, user)
}
