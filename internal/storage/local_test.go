package storage

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreUploadAndSign(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://relay.local/", "secret")
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	id, err := store.Upload(ctx, "artifact-1.mp4", strings.NewReader("video-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "artifact-1.mp4", id)

	signed, err := store.SignedURL(ctx, id, time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "relay.local", u.Host)
	assert.Equal(t, "/artifacts/artifact-1.mp4", u.Path)

	path, err := store.Verify("artifact-1.mp4", u.Query().Get("expires"), u.Query().Get("signature"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	_, err = store.Verify("artifact-2.mp4", u.Query().Get("expires"), u.Query().Get("signature"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	now = now.Add(2 * time.Hour)
	_, err = store.Verify("artifact-1.mp4", u.Query().Get("expires"), u.Query().Get("signature"))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://relay.local", "secret")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../escape.mp4", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = store.SignedURL(context.Background(), "a/b.mp4", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidName)
}
