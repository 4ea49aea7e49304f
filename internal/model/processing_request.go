package model

import (
	"time"
)

// ProcessingRequest records one submission attempt and its progress
type ProcessingRequest struct {
	ID            uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	ClientID      string    `json:"client_id" gorm:"type:varchar(64);not null;index:idx_client_created,priority:1"`
	RequestID     string    `json:"request_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	ArtifactID    string    `json:"artifact_id" gorm:"type:varchar(64);not null;index"`
	SourceURL     string    `json:"source_url" gorm:"type:text;not null"`
	DisplayName   string    `json:"display_name" gorm:"type:varchar(255)"`
	ClientAddress string    `json:"client_address" gorm:"type:varchar(64)"`
	Status        Status    `json:"status" gorm:"type:varchar(32);not null"`
	HTTPStatus    int       `json:"http_status,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"index:idx_client_created,priority:2"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for ProcessingRequest
func (ProcessingRequest) TableName() string {
	return "processing_requests"
}
