package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/testutil"
)

func TestEnqueueClaimAck(t *testing.T) {
	ctx := context.Background()
	q := New(testutil.OpenTestDB(t), time.Minute)

	d, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)

	require.NoError(t, q.Enqueue(ctx, model.WorkItem{RequestID: "r1", ClientID: "c1", SourceURL: "https://x/a_1.ts", ArtifactID: "a1"}))
	require.NoError(t, q.Enqueue(ctx, model.WorkItem{RequestID: "r2", ClientID: "c2", SourceURL: "https://x/b_1.ts", ArtifactID: "a2"}))

	first, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "r1", first.Item.RequestID)
	assert.Equal(t, 1, first.Attempts)

	second, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "r2", second.Item.RequestID)

	none, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, none, "both items are leased")

	require.NoError(t, q.Ack(ctx, first.ID))
	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestExpiredLeaseIsRedelivered(t *testing.T) {
	ctx := context.Background()
	q := New(testutil.OpenTestDB(t), time.Minute)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return clock }

	require.NoError(t, q.Enqueue(ctx, model.WorkItem{RequestID: "r1", ClientID: "c1", SourceURL: "https://x/a_1.ts", ArtifactID: "a1"}))

	d, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)

	clock = clock.Add(30 * time.Second)
	again, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)

	clock = clock.Add(2 * time.Minute)
	again, err = q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, d.ID, again.ID)
	assert.Equal(t, 2, again.Attempts)
}
