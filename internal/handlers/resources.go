package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"affconsole/internal/middleware"
	"affconsole/internal/models"
)

// crud binds the service calls of one admin resource.
type crud[T any, In any] struct {
	list   func(ctx context.Context, p models.ListParams) ([]T, int, error)
	get    func(ctx context.Context, uuid string) (T, error)
	create func(ctx context.Context, in In) (T, error)
	update func(ctx context.Context, uuid string, in In) (T, error)
	remove func(ctx context.Context, uuid string) error
}

func registerCRUD[T any, In any](g *gin.RouterGroup, h HandlerSet, ops crud[T, In]) {
	g.GET("", func(c *gin.Context) {
		p := listParams(c)
		items, total, err := ops.list(c.Request.Context(), p)
		if err != nil {
			h.fail(c, err)
			return
		}
		respondList(c, items, p, total)
	})

	g.GET("/:uuid", func(c *gin.Context) {
		item, err := ops.get(c.Request.Context(), c.Param("uuid"))
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, item)
	})

	g.POST("", func(c *gin.Context) {
		var in In
		if !bind(c, &in) {
			return
		}
		item, err := ops.create(c.Request.Context(), in)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusCreated, item)
	})

	g.PUT("/:uuid", func(c *gin.Context) {
		var in In
		if !bind(c, &in) {
			return
		}
		item, err := ops.update(c.Request.Context(), c.Param("uuid"), in)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, item)
	})

	g.DELETE("/:uuid", func(c *gin.Context) {
		if err := ops.remove(c.Request.Context(), c.Param("uuid")); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, models.Ack{Success: true, Message: "deleted"})
	})
}

func (h HandlerSet) AffiliatorSummary(c *gin.Context) {
	summary, err := h.accounts.AffiliatorSummary(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, summary)
}

func (h HandlerSet) MyCustomers(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	items, err := h.accounts.MyCustomers(c.Request.Context(), user)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (h HandlerSet) MyPayments(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	items, err := h.accounts.MyPayments(c.Request.Context(), user)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}
