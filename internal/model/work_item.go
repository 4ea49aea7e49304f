package model

import (
	"time"
)

// WorkItem is the queue message handed from intake to the workers
type WorkItem struct {
	RequestID   string `json:"request_id"`
	ClientID    string `json:"client_id"`
	SourceURL   string `json:"source_url"`
	ArtifactID  string `json:"artifact_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// QueuedWorkItem is the persisted form of a WorkItem awaiting delivery
type QueuedWorkItem struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"`
	RequestID    string     `gorm:"type:varchar(64);not null;index"`
	ClientID     string     `gorm:"type:varchar(64);not null"`
	SourceURL    string     `gorm:"type:text;not null"`
	ArtifactID   string     `gorm:"type:varchar(64);not null"`
	DisplayName  string     `gorm:"type:varchar(255)"`
	Attempts     int        `gorm:"not null;default:0"`
	ClaimedUntil *time.Time `gorm:"index"`
	CreatedAt    time.Time
}

// TableName specifies the table name for QueuedWorkItem
func (QueuedWorkItem) TableName() string {
	return "work_items"
}

// Item returns the message payload
func (q QueuedWorkItem) Item() WorkItem {
	return WorkItem{
		RequestID:   q.RequestID,
		ClientID:    q.ClientID,
		SourceURL:   q.SourceURL,
		ArtifactID:  q.ArtifactID,
		DisplayName: q.DisplayName,
	}
}
