package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"affconsole/internal/media/sniffer"
	"affconsole/internal/middleware"
	"affconsole/internal/models"
	"affconsole/internal/repository"
	"affconsole/internal/security"
	"affconsole/internal/service"
)

func respond[T any](c *gin.Context, status int, data T) {
	c.JSON(status, models.Envelope[T]{Success: true, Data: data})
}

func respondList[T any](c *gin.Context, items []T, p models.ListParams, total int) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, models.Envelope[[]T]{
		Success:    true,
		Data:       items,
		Pagination: models.NewPagination(p, total),
	})
}

// fail writes the error body for err. Unknown errors are logged and hidden
// behind a generic message.
func (h HandlerSet) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", middleware.RequestIDFrom(c)).Msg("request failed")
		msg = "internal server error"
	}
	middleware.Abort(c, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrSessionRevoked),
		errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAffiliator),
		errors.Is(err, service.ErrProofNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrAffiliatorNotFound),
		errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, service.ErrNoProof):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrTypeMismatch),
		errors.Is(err, sniffer.ErrUnknownType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// bind decodes the JSON body into dst and answers 400 when it is invalid.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.Abort(c, http.StatusBadRequest, bindMessage(err))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), rule))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

func listParams(c *gin.Context) models.ListParams {
	p := models.ListParams{Search: strings.TrimSpace(c.Query("search"))}
	p.Page, _ = strconv.Atoi(c.Query("page"))
	p.Limit, _ = strconv.Atoi(c.Query("limit"))
	return p.Normalize()
}
