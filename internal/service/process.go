package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/fetcher"
	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/remux"
	"stream-stitch-relay/internal/repository"
	"stream-stitch-relay/internal/scratch"
)

// Process drives one work item to a terminal status. It returns an error only
// when the item should be redelivered later; job failures are recorded on the
// request and return nil.
func (o *Orchestrator) Process(ctx context.Context, item model.WorkItem) (retErr error) {
	log := logrus.WithFields(logrus.Fields{
		"request_id":  item.RequestID,
		"client_id":   item.ClientID,
		"artifact_id": item.ArtifactID,
	})

	req, err := o.requests.GetRequestByID(ctx, item.RequestID)
	if err != nil {
		return fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		log.Warn("Work item has no request record, dropping")
		return nil
	}
	if req.Status.IsTerminal() {
		log.WithField("status", req.Status).Info("Request already finished, skipping redelivered item")
		return nil
	}

	start := o.now()
	o.metrics.ActiveJobs.Inc()
	defer o.metrics.ActiveJobs.Dec()
	defer o.recoverJob(ctx, item, log, &retErr)

	final, err := o.run(ctx, item, log)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	o.metrics.JobsFinished.WithLabelValues(string(final)).Inc()
	o.metrics.JobDuration.Observe(o.now().Sub(start).Seconds())
	log.WithField("status", final).Info("Job finished")
	return nil
}

func (o *Orchestrator) run(ctx context.Context, item model.WorkItem, log *logrus.Entry) (model.Status, error) {
	pattern, err := fetcher.DetectPattern(item.SourceURL)
	if err != nil {
		return o.fail(ctx, item, err, log)
	}

	dir, err := scratch.Acquire(o.scratchDir, item.RequestID)
	if errors.Is(err, scratch.ErrBusy) {
		log.Warn("Scratch directory held by another worker")
		return "", ErrJobInProgress
	}
	if err != nil {
		return o.fail(ctx, item, err, log)
	}
	defer dir.Release()

	if _, err := o.advance(ctx, item, model.StatusDownloading, log); err != nil {
		return "", err
	}

	res, err := o.fetcher.Fetch(ctx, pattern, dir.Path)
	if err != nil {
		return o.fail(ctx, item, err, log)
	}
	o.metrics.SegmentsFetched.Add(float64(len(res.Segments)))
	o.metrics.BytesFetched.Add(float64(res.Bytes))

	if _, err := o.advance(ctx, item, model.StatusEncoding, log); err != nil {
		return "", err
	}

	output, err := o.remuxer.Concat(ctx, res.Segments, dir.Path)
	if err != nil {
		return o.fail(ctx, item, err, log)
	}

	if err := o.publish(ctx, item, output); err != nil {
		return o.fail(ctx, item, err, log)
	}

	ok, err := o.advance(ctx, item, model.StatusCompleted, log)
	if err != nil {
		return "", err
	}
	if !ok {
		return o.currentStatus(ctx, item)
	}
	return model.StatusCompleted, nil
}

// recoverJob turns a panic inside a job into an INTERNAL_FAULT on the request
func (o *Orchestrator) recoverJob(ctx context.Context, item model.WorkItem, log *logrus.Entry, retErr *error) {
	r := recover()
	if r == nil {
		return
	}
	log.WithField("panic", r).Errorf("Job panicked\n%s", debug.Stack())

	status, err := o.fail(ctx, item, fmt.Errorf("job panicked: %v", r), log)
	if err != nil {
		*retErr = err
		return
	}
	o.metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	*retErr = nil
}

// publish uploads the container, signs a retrieval URL and records the artifact for dedup
func (o *Orchestrator) publish(ctx context.Context, item model.WorkItem, output string) error {
	f, err := os.Open(output)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer f.Close()

	objectID, err := o.objects.Upload(ctx, item.ArtifactID+".mp4", f)
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	if info, err := f.Stat(); err == nil {
		logrus.WithField("artifact_id", item.ArtifactID).Infof("Uploaded %s (%s)", objectID, humanize.Bytes(uint64(info.Size())))
	}

	url, err := o.objects.SignedURL(ctx, objectID, o.signedURLTTL)
	if err != nil {
		return fmt.Errorf("failed to sign artifact url: %w", err)
	}

	rec := &model.DedupRecord{
		Digest:       Digest(item.SourceURL),
		ArtifactID:   item.ArtifactID,
		ObjectName:   objectID,
		RetrievalURL: url,
		DisplayName:  item.DisplayName,
		CompletedAt:  o.now(),
	}
	if err := o.dedup.CreateDedupRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

// advance moves the request forward; a refused transition means it already moved past to.
// Store errors are returned so the item is redelivered instead of acked.
func (o *Orchestrator) advance(ctx context.Context, item model.WorkItem, to model.Status, log *logrus.Entry) (bool, error) {
	ok, err := o.requests.TransitionRequest(ctx, item.RequestID, to, repository.Transition{})
	if err != nil {
		log.WithError(err).Errorf("Failed to record %s", to)
		return false, fmt.Errorf("failed to record %s: %w", to, err)
	}
	if !ok {
		log.Debugf("Request not advanced to %s", to)
	}
	return ok, nil
}

// fail records the terminal status for err and returns it. When the mapped
// status is not reachable from the current one, INTERNAL_FAULT is recorded instead.
func (o *Orchestrator) fail(ctx context.Context, item model.WorkItem, err error, log *logrus.Entry) (model.Status, error) {
	status, httpStatus := failureStatus(err)
	log.WithError(err).WithField("status", status).Warn("Job failed")

	t := repository.Transition{HTTPStatus: httpStatus, FailureReason: err.Error()}
	ok, terr := o.requests.TransitionRequest(ctx, item.RequestID, status, t)
	if terr != nil {
		log.WithError(terr).Error("Failed to record job failure")
		return "", fmt.Errorf("failed to record %s: %w", status, terr)
	}
	if ok {
		return status, nil
	}

	if status != model.StatusInternalFault {
		t.FailureReason = fmt.Sprintf("%s: %s", status, t.FailureReason)
		ok, terr := o.requests.TransitionRequest(ctx, item.RequestID, model.StatusInternalFault, t)
		if terr != nil {
			return "", fmt.Errorf("failed to record %s: %w", model.StatusInternalFault, terr)
		}
		if ok {
			return model.StatusInternalFault, nil
		}
	}
	return o.currentStatus(ctx, item)
}

func (o *Orchestrator) currentStatus(ctx context.Context, item model.WorkItem) (model.Status, error) {
	req, err := o.requests.GetRequestByID(ctx, item.RequestID)
	if err != nil {
		return "", fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return model.StatusInternalFault, nil
	}
	return req.Status, nil
}

// failureStatus maps a job error to its terminal status and, for download failures, the HTTP status seen
func failureStatus(err error) (model.Status, int) {
	var fe *fetcher.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetcher.KindUnrecognizedFormat:
			return model.StatusUnrecognizedFormat, 0
		case fetcher.KindDownloadFailed:
			return model.StatusDownloadFailed, fe.HTTPStatus
		case fetcher.KindNetworkError:
			return model.StatusNetworkError, 0
		default:
			return model.StatusInternalFault, 0
		}
	}

	var re *remux.Error
	if errors.As(err, &re) {
		return model.StatusEncodingFault, 0
	}
	return model.StatusInternalFault, 0
}
