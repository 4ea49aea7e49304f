package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartWorkers starts the worker pool
func (h *Handlers) StartWorkers(c *gin.Context) {
	if err := h.workers.Start(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "worker_error",
			Message: err.Error(),
			Code:    http.StatusConflict,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Workers started successfully",
		"status":  "running",
	})
}

// StopWorkers stops the worker pool; leased items are redelivered later
func (h *Handlers) StopWorkers(c *gin.Context) {
	if err := h.workers.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "worker_error",
			Message: "Failed to stop workers",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Workers stopped successfully",
		"status":  "stopped",
	})
}

// GetWorkerStatus returns the worker pool status
func (h *Handlers) GetWorkerStatus(c *gin.Context) {
	response := WorkerStatusResponse{Status: "stopped"}
	if h.workers.IsRunning() {
		response.Status = "running"
	}
	if h.queue != nil {
		if depth, err := h.queue.Depth(c.Request.Context()); err == nil {
			response.QueueDepth = &depth
		}
	}
	if h.janitor != nil {
		if next := h.janitor.GetNextRun(); !next.IsZero() {
			response.JanitorNextAt = &next
		}
	}

	c.JSON(http.StatusOK, response)
}

// RunJanitor sweeps abandoned scratch directories immediately
func (h *Handlers) RunJanitor(c *gin.Context) {
	removed, err := h.janitor.RunOnce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "janitor_error",
			Message: "Failed to sweep scratch directories",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scratch sweep completed",
		"removed": removed,
	})
}
