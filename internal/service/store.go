package service

import (
	"context"
	"time"

	"stream-stitch-relay/internal/fetcher"
	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/repository"
)

// RequestStore persists processing requests
type RequestStore interface {
	CreateRequest(ctx context.Context, req *model.ProcessingRequest) error
	LatestRequest(ctx context.Context, clientID string) (*model.ProcessingRequest, error)
	GetRequest(ctx context.Context, clientID, requestID string) (*model.ProcessingRequest, error)
	GetRequestByID(ctx context.Context, requestID string) (*model.ProcessingRequest, error)
	ListRequests(ctx context.Context, clientID string, limit int) ([]model.ProcessingRequest, error)
	TransitionRequest(ctx context.Context, requestID string, to model.Status, t repository.Transition) (bool, error)
}

// DedupStore persists completed artifacts keyed by source digest
type DedupStore interface {
	CreateDedupRecord(ctx context.Context, rec *model.DedupRecord) error
	FindDedupRecords(ctx context.Context, digest string, since time.Time, limit int) ([]model.DedupRecord, error)
	FindDedupByArtifact(ctx context.Context, artifactID string) (*model.DedupRecord, error)
}

// Publisher hands work items to the worker queue
type Publisher interface {
	Enqueue(ctx context.Context, item model.WorkItem) error
}

// SegmentFetcher downloads every segment of a detected pattern into dir
type SegmentFetcher interface {
	Fetch(ctx context.Context, p *fetcher.Pattern, dir string) (*fetcher.Result, error)
}

// Concatenator joins segments into one container file inside dir
type Concatenator interface {
	Concat(ctx context.Context, segments []string, dir string) (string, error)
}

// Clock returns the current time
type Clock func() time.Time
