package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stream-stitch-relay/internal/model"
)

// Repository is the record store for processing requests and dedup records
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transition carries the fields written alongside a status change
type Transition struct {
	HTTPStatus    int
	FailureReason string
}

func (r *Repository) CreateRequest(ctx context.Context, req *model.ProcessingRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create processing request: %w", err)
	}
	return nil
}

// LatestRequest returns the most recently created request for clientID, or nil if there is none
func (r *Repository) LatestRequest(ctx context.Context, clientID string) (*model.ProcessingRequest, error) {
	var req model.ProcessingRequest
	result := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").Order("id DESC").
		First(&req)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("database error loading latest request: %w", result.Error)
	}
	return &req, nil
}

func (r *Repository) GetRequest(ctx context.Context, clientID, requestID string) (*model.ProcessingRequest, error) {
	var req model.ProcessingRequest
	result := r.db.WithContext(ctx).Where("client_id = ? AND request_id = ?", clientID, requestID).First(&req)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("database error loading request: %w", result.Error)
	}
	return &req, nil
}

func (r *Repository) GetRequestByID(ctx context.Context, requestID string) (*model.ProcessingRequest, error) {
	var req model.ProcessingRequest
	result := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&req)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("database error loading request: %w", result.Error)
	}
	return &req, nil
}

// ListRequests returns up to limit requests for clientID, newest first
func (r *Repository) ListRequests(ctx context.Context, clientID string, limit int) ([]model.ProcessingRequest, error) {
	var reqs []model.ProcessingRequest
	result := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&reqs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list requests: %w", result.Error)
	}
	return reqs, nil
}

// TransitionRequest moves a request to status to if its current status is a legal predecessor.
// It reports false when the row is missing or already past that point.
func (r *Repository) TransitionRequest(ctx context.Context, requestID string, to model.Status, t Transition) (bool, error) {
	from := model.Predecessors(to)
	if len(from) == 0 {
		return false, fmt.Errorf("status %s has no predecessors", to)
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if t.HTTPStatus != 0 {
		updates["http_status"] = t.HTTPStatus
	}
	if t.FailureReason != "" {
		updates["failure_reason"] = t.FailureReason
	}

	result := r.db.WithContext(ctx).
		Model(&model.ProcessingRequest{}).
		Where("request_id = ? AND status IN ?", requestID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition request to %s: %w", to, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) CreateDedupRecord(ctx context.Context, rec *model.DedupRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create dedup record: %w", err)
	}
	return nil
}

// FindDedupRecords returns up to limit records under digest completed at or after since, in insertion order
func (r *Repository) FindDedupRecords(ctx context.Context, digest string, since time.Time, limit int) ([]model.DedupRecord, error) {
	var recs []model.DedupRecord
	result := r.db.WithContext(ctx).
		Where("digest = ? AND completed_at >= ?", digest, since.UTC()).
		Order("id ASC").
		Limit(limit).
		Find(&recs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find dedup records: %w", result.Error)
	}
	return recs, nil
}

// FindDedupByArtifact returns the record published for artifactID, or nil
func (r *Repository) FindDedupByArtifact(ctx context.Context, artifactID string) (*model.DedupRecord, error) {
	var rec model.DedupRecord
	result := r.db.WithContext(ctx).Where("artifact_id = ?", artifactID).Order("id DESC").First(&rec)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("database error loading dedup record: %w", result.Error)
	}
	return &rec, nil
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
