package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/config"
	"stream-stitch-relay/internal/metrics"
	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/repository"
	"stream-stitch-relay/internal/storage"
)

// Dependencies are the collaborators an Orchestrator drives
type Dependencies struct {
	Requests RequestStore
	Dedup    DedupStore
	Queue    Publisher
	Fetcher  SegmentFetcher
	Remuxer  Concatenator
	Objects  storage.ObjectStore
}

// Orchestrator accepts submissions and drives queued jobs to a terminal status
type Orchestrator struct {
	requests RequestStore
	dedup    DedupStore
	queue    Publisher
	fetcher  SegmentFetcher
	remuxer  Concatenator
	objects  storage.ObjectStore

	gate     *IntakeGate
	resolver *DedupResolver
	metrics  *metrics.Metrics

	scratchDir   string
	signedURLTTL time.Duration

	now   Clock
	newID func() string
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(deps Dependencies, cfg *config.Config, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		requests:     deps.Requests,
		dedup:        deps.Dedup,
		queue:        deps.Queue,
		fetcher:      deps.Fetcher,
		remuxer:      deps.Remuxer,
		objects:      deps.Objects,
		gate:         NewIntakeGate(deps.Requests, cfg.Intake.DebounceWindow),
		resolver:     NewDedupResolver(deps.Dedup, cfg.Intake.FreshnessWindow, cfg.Intake.MaxDedupScan),
		metrics:      m,
		scratchDir:   cfg.Worker.ScratchDir,
		signedURLTTL: cfg.Storage.SignedURLTTL,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

// Submission is a validated intake request
type Submission struct {
	ClientID    string
	SourceURL   string
	DisplayName string
}

// SubmitResult is the outcome of an accepted submission
type SubmitResult struct {
	RequestID    string
	ArtifactID   string
	Status       model.Status
	RetrievalURL string
}

// RequestView is a request together with its retrieval URL once completed
type RequestView struct {
	Request      *model.ProcessingRequest
	RetrievalURL string
}

// Submit runs the intake sequence: debounce, dedup, record, enqueue.
// A rejected submission records nothing.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission, clientAddress string) (*SubmitResult, error) {
	now := o.now()
	log := logrus.WithFields(logrus.Fields{
		"client_id": sub.ClientID,
		"source":    sub.SourceURL,
	})

	if err := o.gate.Allow(ctx, sub.ClientID, now); err != nil {
		if KindOf(err) == KindRateLimited {
			o.metrics.RateLimited.Inc()
			log.Info("Submission rejected by debounce window")
		}
		return nil, err
	}

	hit, err := o.resolver.Resolve(ctx, sub.SourceURL, now)
	if err != nil {
		return nil, err
	}

	req := &model.ProcessingRequest{
		ClientID:      sub.ClientID,
		RequestID:     o.newID(),
		ArtifactID:    o.newID(),
		SourceURL:     sub.SourceURL,
		DisplayName:   sub.DisplayName,
		ClientAddress: clientAddress,
		Status:        model.StatusQueued,
		CreatedAt:     now,
	}
	if hit != nil {
		req.ArtifactID = hit.ArtifactID
		req.Status = model.StatusCompleted
	}

	if err := o.requests.CreateRequest(ctx, req); err != nil {
		return nil, newError(KindInternal, "failed to record request", err)
	}
	o.metrics.Submissions.Inc()

	log = log.WithFields(logrus.Fields{
		"request_id":  req.RequestID,
		"artifact_id": req.ArtifactID,
	})

	result := &SubmitResult{
		RequestID:  req.RequestID,
		ArtifactID: req.ArtifactID,
		Status:     req.Status,
	}

	if hit != nil {
		o.metrics.DedupHits.Inc()
		result.RetrievalURL = hit.RetrievalURL
		log.Info("Submission served from existing artifact")
		return result, nil
	}

	item := model.WorkItem{
		RequestID:   req.RequestID,
		ClientID:    req.ClientID,
		SourceURL:   req.SourceURL,
		ArtifactID:  req.ArtifactID,
		DisplayName: req.DisplayName,
	}
	if err := o.queue.Enqueue(ctx, item); err != nil {
		log.WithError(err).Error("Failed to enqueue work item")
		if _, terr := o.requests.TransitionRequest(ctx, req.RequestID, model.StatusInternalFault,
			repository.Transition{FailureReason: "enqueue failed: " + err.Error()}); terr != nil {
			log.WithError(terr).Error("Failed to record enqueue failure")
		}
		return nil, newError(KindInternal, "failed to enqueue request", err)
	}

	log.Info("Submission queued")
	return result, nil
}

// Status returns one of clientID's requests
func (o *Orchestrator) Status(ctx context.Context, clientID, requestID string) (*RequestView, error) {
	req, err := o.requests.GetRequest(ctx, clientID, requestID)
	if err != nil {
		return nil, newError(KindInternal, "failed to load request", err)
	}
	if req == nil {
		return nil, newError(KindNotFound, "Request not found", nil)
	}

	view := &RequestView{Request: req}
	if req.Status == model.StatusCompleted {
		rec, err := o.dedup.FindDedupByArtifact(ctx, req.ArtifactID)
		if err != nil {
			return nil, newError(KindInternal, "failed to load artifact", err)
		}
		if rec != nil {
			// The stored URL expires; hand out a freshly signed one on every read.
			url, err := o.objects.SignedURL(ctx, rec.ObjectName, o.signedURLTTL)
			if err != nil {
				return nil, newError(KindInternal, "failed to sign artifact url", err)
			}
			view.RetrievalURL = url
		}
	}
	return view, nil
}

// History lists clientID's most recent requests, newest first
func (o *Orchestrator) History(ctx context.Context, clientID string, limit int) ([]model.ProcessingRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	reqs, err := o.requests.ListRequests(ctx, clientID, limit)
	if err != nil {
		return nil, newError(KindInternal, "failed to list requests", err)
	}
	return reqs, nil
}
