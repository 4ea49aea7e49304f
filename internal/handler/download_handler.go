package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/service"
)

// CreateDownload accepts a media URL for stitching
func (h *Handlers) CreateDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	res, err := h.intake.Submit(c.Request.Context(), service.Submission{
		ClientID:    req.InstallationID,
		SourceURL:   req.MediaURL,
		DisplayName: req.DisplayName,
	}, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	response := DownloadResponse{
		RequestID:   res.RequestID,
		ArtifactID:  res.ArtifactID,
		Status:      string(res.Status),
		DownloadURL: res.RetrievalURL,
	}

	statusCode := http.StatusAccepted
	if res.Status == model.StatusCompleted {
		statusCode = http.StatusOK
	}
	c.JSON(statusCode, response)
}

// GetDownload returns the status of one of an installation's requests
func (h *Handlers) GetDownload(c *gin.Context) {
	view, err := h.intake.Status(c.Request.Context(), c.Param("installationId"), c.Param("requestId"))
	if err != nil {
		respondError(c, err)
		return
	}

	req := view.Request
	c.JSON(http.StatusOK, DownloadResponse{
		RequestID:     req.RequestID,
		ArtifactID:    req.ArtifactID,
		Status:        string(req.Status),
		DownloadURL:   view.RetrievalURL,
		HTTPStatus:    req.HTTPStatus,
		FailureReason: req.FailureReason,
		CreatedAt:     &req.CreatedAt,
		UpdatedAt:     &req.UpdatedAt,
	})
}

// respondError writes err using the status code of its kind
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) || se.Kind == service.KindInternal {
		logrus.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Internal Server Error",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	code := statusFor(se.Kind)
	response := ErrorResponse{
		Error:   http.StatusText(code),
		Message: se.Message,
		Code:    code,
	}
	if se.Err != nil {
		response.Details = se.Err.Error()
	}
	c.JSON(code, response)
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
