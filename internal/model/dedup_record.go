package model

import (
	"time"
)

// DedupRecord marks a completed artifact for reuse by later submissions of the same source
type DedupRecord struct {
	ID           uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	Digest       string    `json:"digest" gorm:"type:varchar(64);not null;index"`
	ArtifactID   string    `json:"artifact_id" gorm:"type:varchar(64);not null;index"`
	ObjectName   string    `json:"object_name" gorm:"type:varchar(255);not null"`
	RetrievalURL string    `json:"retrieval_url" gorm:"type:text;not null"`
	DisplayName  string    `json:"display_name" gorm:"type:varchar(255)"`
	CompletedAt  time.Time `json:"completed_at"`
}

// TableName specifies the table name for DedupRecord
func (DedupRecord) TableName() string {
	return "dedup_records"
}
