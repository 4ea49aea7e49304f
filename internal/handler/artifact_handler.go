package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"stream-stitch-relay/internal/storage"
)

// GetArtifact serves a locally stored artifact behind a signed URL
func (h *Handlers) GetArtifact(c *gin.Context) {
	name := c.Param("name")
	path, err := h.artifacts.Verify(name, c.Query("expires"), c.Query("signature"))
	if err != nil {
		code := http.StatusForbidden
		if errors.Is(err, storage.ErrInvalidName) {
			code = http.StatusBadRequest
		}
		c.JSON(code, ErrorResponse{
			Error:   http.StatusText(code),
			Message: err.Error(),
			Code:    code,
		})
		return
	}

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "Artifact not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.FileAttachment(path, name)
}
