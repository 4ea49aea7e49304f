package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/repository"
	"stream-stitch-relay/internal/testutil"
)

func TestIntakeGateDebounceBoundary(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(testutil.OpenTestDB(t))
	gate := NewIntakeGate(repo, 3*time.Second)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, gate.Allow(ctx, "client-1", created), "no prior request")

	require.NoError(t, repo.CreateRequest(ctx, &model.ProcessingRequest{
		ClientID:   "client-1",
		RequestID:  "req-1",
		ArtifactID: "art-1",
		SourceURL:  "https://cdn.example.com/v/media_001_480p.ts",
		Status:     model.StatusQueued,
		CreatedAt:  created,
	}))

	tests := []struct {
		name    string
		elapsed time.Duration
		allowed bool
	}{
		{"one second later", time.Second, false},
		{"exactly three seconds later", 3 * time.Second, false},
		{"four seconds later", 4 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Allow(ctx, "client-1", created.Add(tt.elapsed))
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindRateLimited, KindOf(err))
		})
	}

	assert.NoError(t, gate.Allow(ctx, "client-2", created), "other clients are unaffected")
}
