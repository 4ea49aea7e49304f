package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"stream-stitch-relay/internal/config"
	"stream-stitch-relay/internal/fetcher"
	"stream-stitch-relay/internal/metrics"
	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/queue"
	"stream-stitch-relay/internal/repository"
	"stream-stitch-relay/internal/storage"
	"stream-stitch-relay/internal/testutil"
)

// recordingStore keeps every successful status transition. Transitions to
// failOn return failErr without touching the database.
type recordingStore struct {
	*repository.Repository

	mu          sync.Mutex
	transitions []model.Status
	failOn      model.Status
	failErr     error
}

func (s *recordingStore) TransitionRequest(ctx context.Context, requestID string, to model.Status, t repository.Transition) (bool, error) {
	if s.failErr != nil && to == s.failOn {
		return false, s.failErr
	}
	ok, err := s.Repository.TransitionRequest(ctx, requestID, to, t)
	if ok {
		s.mu.Lock()
		s.transitions = append(s.transitions, to)
		s.mu.Unlock()
	}
	return ok, err
}

func (s *recordingStore) seen() []model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Status(nil), s.transitions...)
}

// fakeRemuxer concatenates segment bytes instead of running ffmpeg
type fakeRemuxer struct {
	calls int
	err   error
}

func (f *fakeRemuxer) Concat(ctx context.Context, segments []string, dir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(dir, "output.mp4")
	var data []byte
	for _, seg := range segments {
		b, err := os.ReadFile(seg)
		if err != nil {
			return "", err
		}
		data = append(data, b...)
	}
	return out, os.WriteFile(out, data, 0o644)
}

type harness struct {
	orch     *Orchestrator
	repo     *repository.Repository
	requests *recordingStore
	queue    *queue.Queue
	remuxer  *fakeRemuxer
	objects  *storage.LocalStore
	scratch  string
	now      time.Time
}

func (h *harness) advanceClock(d time.Duration) {
	h.now = h.now.Add(d)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.OpenTestDB(t)
	repo := repository.New(db)
	q := queue.New(db, time.Minute)

	objects, err := storage.NewLocalStore(t.TempDir(), "http://relay.test", "secret")
	require.NoError(t, err)

	cfg := &config.Config{
		Intake: config.IntakeConfig{
			DebounceWindow:  3 * time.Second,
			FreshnessWindow: 11 * time.Hour,
			MaxDedupScan:    100,
		},
		Worker:  config.WorkerConfig{ScratchDir: t.TempDir()},
		Storage: config.StorageConfig{SignedURLTTL: 12 * time.Hour},
	}

	h := &harness{
		repo:     repo,
		requests: &recordingStore{Repository: repo},
		queue:    q,
		remuxer:  &fakeRemuxer{},
		objects:  objects,
		scratch:  cfg.Worker.ScratchDir,
		now:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	h.orch = NewOrchestrator(Dependencies{
		Requests: h.requests,
		Dedup:    repo,
		Queue:    q,
		Fetcher:  fetcher.New(config.FetcherConfig{MaxSegments: 50, RequestTimeout: 5 * time.Second}),
		Remuxer:  h.remuxer,
		Objects:  objects,
	}, cfg, metrics.NewMetrics(prometheus.NewRegistry()))
	h.orch.now = func() time.Time { return h.now }

	return h
}
