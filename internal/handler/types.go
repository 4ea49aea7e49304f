package handler

import "time"

// DownloadRequest is the body of a submission
type DownloadRequest struct {
	InstallationID string `json:"installationId" binding:"required,uuid"`
	MediaURL       string `json:"mediaUrl" binding:"required,url"`
	DisplayName    string `json:"displayName" binding:"omitempty,max=255"`
}

// DownloadResponse describes a processing request
type DownloadResponse struct {
	RequestID     string     `json:"requestId"`
	ArtifactID    string     `json:"artifactId"`
	Status        string     `json:"status"`
	DownloadURL   string     `json:"downloadUrl,omitempty"`
	HTTPStatus    int        `json:"httpStatus,omitempty"`
	FailureReason string     `json:"failureReason,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// WorkerStatusResponse describes the background workers
type WorkerStatusResponse struct {
	Status        string     `json:"status"`
	QueueDepth    *int64     `json:"queue_depth,omitempty"`
	JanitorNextAt *time.Time `json:"janitor_next_run,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Database   string    `json:"database"`
	Workers    string    `json:"workers,omitempty"`
	QueueDepth *int64    `json:"queue_depth,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}
