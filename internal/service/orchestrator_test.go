package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-stitch-relay/internal/model"
)

const clientID = "5b0c6a4e-8f1d-4d7a-9c3e-2f6b1a7d9e01"

func TestSubmitMissQueuesWork(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, Submission{
		ClientID:    clientID,
		SourceURL:   "https://cdn.example.com/v/media_001_480p.ts",
		DisplayName: "clip",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, res.Status)
	assert.Empty(t, res.RetrievalURL)
	assert.NotEmpty(t, res.RequestID)
	assert.NotEqual(t, res.RequestID, res.ArtifactID)

	depth, err := h.queue.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, depth)

	req, err := h.repo.GetRequest(ctx, clientID, res.RequestID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, model.StatusQueued, req.Status)
	assert.Equal(t, "10.0.0.1", req.ClientAddress)
	assert.Equal(t, "clip", req.DisplayName)
}

func TestSubmitDedupHitSkipsQueue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	source := "https://cdn.example.com/v/media_001_480p.ts"

	require.NoError(t, h.repo.CreateDedupRecord(ctx, &model.DedupRecord{
		Digest:       Digest(source),
		ArtifactID:   "existing-artifact",
		ObjectName:   "existing-artifact.mp4",
		RetrievalURL: "https://store/existing-artifact.mp4",
		CompletedAt:  h.now.Add(-time.Hour),
	}))

	res, err := h.orch.Submit(ctx, Submission{ClientID: clientID, SourceURL: source}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, "existing-artifact", res.ArtifactID)
	assert.Equal(t, "https://store/existing-artifact.mp4", res.RetrievalURL)

	depth, err := h.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	view, err := h.orch.Status(ctx, clientID, res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, view.Request.Status)
	assert.Contains(t, view.RetrievalURL, "http://relay.test/artifacts/existing-artifact.mp4?")
}

func TestSubmitRateLimitedRecordsNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sub := Submission{ClientID: clientID, SourceURL: "https://cdn.example.com/v/media_001_480p.ts"}

	_, err := h.orch.Submit(ctx, sub, "")
	require.NoError(t, err)

	h.advanceClock(2 * time.Second)
	_, err = h.orch.Submit(ctx, sub, "")
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))

	reqs, err := h.orch.History(ctx, clientID, 10)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	h.advanceClock(2 * time.Second)
	_, err = h.orch.Submit(ctx, sub, "")
	require.NoError(t, err)

	reqs, err = h.orch.History(ctx, clientID, 10)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
	assert.True(t, reqs[0].CreatedAt.After(reqs[1].CreatedAt), "newest first")
}

type failingPublisher struct{}

func (failingPublisher) Enqueue(ctx context.Context, item model.WorkItem) error {
	return errors.New("queue unavailable")
}

func TestSubmitEnqueueFailureMarksInternalFault(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.orch.queue = failingPublisher{}

	_, err := h.orch.Submit(ctx, Submission{ClientID: clientID, SourceURL: "https://cdn.example.com/v/media_001_480p.ts"}, "")
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	reqs, err := h.orch.History(ctx, clientID, 10)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.StatusInternalFault, reqs[0].Status)
	assert.Contains(t, reqs[0].FailureReason, "queue unavailable")
}

func TestStatusNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Status(context.Background(), clientID, "missing")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestStatusResignsStoredURL(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	name, err := h.objects.Upload(ctx, "art-old.mp4", strings.NewReader("container"))
	require.NoError(t, err)
	require.NoError(t, h.repo.CreateDedupRecord(ctx, &model.DedupRecord{
		Digest:       Digest("https://cdn.example.com/v/media_001_480p.ts"),
		ArtifactID:   "art-old",
		ObjectName:   name,
		RetrievalURL: "https://store/stale",
		CompletedAt:  h.now.Add(-20 * time.Hour),
	}))
	require.NoError(t, h.repo.CreateRequest(ctx, &model.ProcessingRequest{
		ClientID:   clientID,
		RequestID:  "req-old",
		ArtifactID: "art-old",
		SourceURL:  "https://cdn.example.com/v/media_001_480p.ts",
		Status:     model.StatusCompleted,
		CreatedAt:  h.now.Add(-20 * time.Hour),
	}))

	view, err := h.orch.Status(ctx, clientID, "req-old")
	require.NoError(t, err)
	require.NotEqual(t, "https://store/stale", view.RetrievalURL)

	signed, err := url.Parse(view.RetrievalURL)
	require.NoError(t, err)
	path, err := h.objects.Verify(name, signed.Query().Get("expires"), signed.Query().Get("signature"))
	require.NoError(t, err, "re-signed url is valid now")
	assert.FileExists(t, path)
}
