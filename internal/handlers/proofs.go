package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"affconsole/internal/middleware"
	"affconsole/internal/service"
)

func (h HandlerSet) UploadProof(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxProofSize+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		middleware.Abort(c, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	stored, err := h.proofs.Upload(c.Request.Context(), service.UploadInput{File: file, Header: header})
	if err != nil {
		h.log.Warn().Err(err).Str("filename", header.Filename).Msg("proof upload rejected")
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, stored)
}

func (h HandlerSet) DownloadProof(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	obj, name, err := h.proofs.Download(c.Request.Context(), user, c.Param("uuid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer obj.Body.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}
