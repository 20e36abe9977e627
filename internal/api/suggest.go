package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chefshare/internal/apperror"
	"chefshare/internal/media"
	"chefshare/internal/suggest"
)

// Suggest asks the AI candidates for a recipe built from the posted ingredients.
func (h *Handler) Suggest(c *gin.Context) {
	var req suggest.Request
	if !bindJSON(c, &req, "Please provide ingredients or a prompt") {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.AITimeout)
	defer cancel()

	s, err := h.Suggester.Suggest(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Upload stores the multipart "file" image and returns its URL.
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperror.Validation("No file uploaded"))
		return
	}
	if file.Size > media.MaxUploadBytes {
		respondError(c, apperror.Validation("Image is too large. The limit is 2 MB."))
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()

	// One extra byte tells an oversized body apart from one exactly at the limit.
	data, err := io.ReadAll(io.LimitReader(src, media.MaxUploadBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.Images.Save(file.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
