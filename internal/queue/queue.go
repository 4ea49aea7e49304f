// Package queue is the work-item transport between intake and workers.
//
// Items live in the work_items table. A worker claims the oldest item whose
// lease is absent or expired, processes it, and acks it by deleting the row.
// A worker that dies mid-job lets the lease lapse, so delivery is
// at-least-once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stream-stitch-relay/internal/model"
)

// claimAttempts bounds how often Claim retries after losing a race for the same row.
const claimAttempts = 3

// Delivery is a claimed work item
type Delivery struct {
	ID       uint
	Item     model.WorkItem
	Attempts int
}

// Queue is a database-backed work-item queue
type Queue struct {
	db    *gorm.DB
	lease time.Duration
	now   func() time.Time
}

// New creates a queue whose claims expire after lease
func New(db *gorm.DB, lease time.Duration) *Queue {
	return &Queue{db: db, lease: lease, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue publishes item for delivery to a worker
func (q *Queue) Enqueue(ctx context.Context, item model.WorkItem) error {
	row := model.QueuedWorkItem{
		RequestID:   item.RequestID,
		ClientID:    item.ClientID,
		SourceURL:   item.SourceURL,
		ArtifactID:  item.ArtifactID,
		DisplayName: item.DisplayName,
		CreatedAt:   q.now(),
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to enqueue work item: %w", err)
	}
	return nil
}

// Claim leases the oldest available item. It returns nil when the queue is empty.
func (q *Queue) Claim(ctx context.Context) (*Delivery, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		now := q.now()

		var row model.QueuedWorkItem
		result := q.db.WithContext(ctx).
			Where("claimed_until IS NULL OR claimed_until < ?", now).
			Order("id ASC").
			First(&row)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if result.Error != nil {
			return nil, fmt.Errorf("failed to look up work item: %w", result.Error)
		}

		until := now.Add(q.lease)
		update := q.db.WithContext(ctx).
			Model(&model.QueuedWorkItem{}).
			Where("id = ? AND (claimed_until IS NULL OR claimed_until < ?)", row.ID, now).
			Updates(map[string]interface{}{
				"claimed_until": until,
				"attempts":      gorm.Expr("attempts + 1"),
			})
		if update.Error != nil {
			return nil, fmt.Errorf("failed to claim work item %d: %w", row.ID, update.Error)
		}
		if update.RowsAffected == 1 {
			return &Delivery{ID: row.ID, Item: row.Item(), Attempts: row.Attempts + 1}, nil
		}
	}
	return nil, nil
}

// Ack removes a processed item from the queue
func (q *Queue) Ack(ctx context.Context, id uint) error {
	if err := q.db.WithContext(ctx).Delete(&model.QueuedWorkItem{}, id).Error; err != nil {
		return fmt.Errorf("failed to ack work item %d: %w", id, err)
	}
	return nil
}

// Depth returns the number of items not yet acked
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.WithContext(ctx).Model(&model.QueuedWorkItem{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count work items: %w", err)
	}
	return n, nil
}
