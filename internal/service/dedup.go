package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"stream-stitch-relay/internal/model"
)

// Digest is the dedup key of a source URL: lowercase hex SHA-256 of its exact bytes
func Digest(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// DedupResolver finds a still-fresh artifact for a source URL
type DedupResolver struct {
	records DedupStore
	window  time.Duration
	maxScan int
}

func NewDedupResolver(records DedupStore, window time.Duration, maxScan int) *DedupResolver {
	if maxScan <= 0 {
		maxScan = 100
	}
	return &DedupResolver{records: records, window: window, maxScan: maxScan}
}

// Resolve returns the first record, in insertion order, completed no more
// than window before now. It returns nil when none qualifies. Stale records
// are filtered by the store so they never crowd fresh ones out of the scan.
func (r *DedupResolver) Resolve(ctx context.Context, sourceURL string, now time.Time) (*model.DedupRecord, error) {
	records, err := r.records.FindDedupRecords(ctx, Digest(sourceURL), now.Add(-r.window), r.maxScan)
	if err != nil {
		return nil, newError(KindInternal, "failed to look up dedup records", err)
	}
	for i := range records {
		if now.Sub(records[i].CompletedAt) <= r.window {
			return &records[i], nil
		}
	}
	return nil, nil
}
