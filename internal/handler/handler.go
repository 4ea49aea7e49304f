package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/service"
	"stream-stitch-relay/internal/storage"
)

// Intake is the submission side of the orchestrator
type Intake interface {
	Submit(ctx context.Context, sub service.Submission, clientAddress string) (*service.SubmitResult, error)
	Status(ctx context.Context, clientID, requestID string) (*service.RequestView, error)
}

// Pinger reports whether the record store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// DepthReporter reports how many work items are waiting
type DepthReporter interface {
	Depth(ctx context.Context) (int64, error)
}

// Runner is a background component that can be started and stopped
type Runner interface {
	Start() error
	Stop() error
	IsRunning() bool
}

// Sweeper runs one janitor pass on demand
type Sweeper interface {
	RunOnce() (int, error)
	GetNextRun() time.Time
}

// Options wires the optional collaborators of Handlers
type Options struct {
	Artifacts *storage.LocalStore
	Queue     DepthReporter
	Workers   Runner
	Janitor   Sweeper
}

// Handlers contains all HTTP handlers
type Handlers struct {
	intake    Intake
	db        Pinger
	artifacts *storage.LocalStore
	queue     DepthReporter
	workers   Runner
	janitor   Sweeper
}

// NewHandlers creates new HTTP handlers
func NewHandlers(intake Intake, db Pinger, opts Options) *Handlers {
	return &Handlers{
		intake:    intake,
		db:        db,
		artifacts: opts.Artifacts,
		queue:     opts.Queue,
		workers:   opts.Workers,
		janitor:   opts.Janitor,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.artifacts != nil {
		router.GET("/artifacts/:name", h.GetArtifact)
	}

	api := router.Group("/api/v1")
	{
		api.POST("/downloads", h.CreateDownload)
		api.GET("/downloads/:installationId/:requestId", h.GetDownload)

		if h.workers != nil {
			api.POST("/workers/start", h.StartWorkers)
			api.POST("/workers/stop", h.StopWorkers)
			api.GET("/workers/status", h.GetWorkerStatus)
		}
		if h.janitor != nil {
			api.POST("/janitor/run-once", h.RunJanitor)
		}
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
	}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.workers != nil {
		response.Workers = "stopped"
		if h.workers.IsRunning() {
			response.Workers = "running"
		}
	}

	if h.queue != nil {
		if depth, err := h.queue.Depth(c.Request.Context()); err == nil {
			response.QueueDepth = &depth
		}
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
