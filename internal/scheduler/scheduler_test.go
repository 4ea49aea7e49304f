package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-stitch-relay/internal/config"
)

func TestJanitorRestart(t *testing.T) {
	janitor := NewJanitor(config.JanitorConfig{Schedule: "0 */15 * * * *", MaxAge: time.Hour}, t.TempDir())

	require.NoError(t, janitor.Start())
	assert.True(t, janitor.IsRunning())
	assert.False(t, janitor.GetNextRun().IsZero())
	assert.Error(t, janitor.Start())

	require.NoError(t, janitor.Stop())
	assert.False(t, janitor.IsRunning())
	assert.True(t, janitor.GetNextRun().IsZero())

	require.NoError(t, janitor.Start())
	assert.True(t, janitor.IsRunning())
	require.NoError(t, janitor.Stop())
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	janitor := NewJanitor(config.JanitorConfig{Schedule: "every now and then"}, t.TempDir())
	assert.Error(t, janitor.Start())
	assert.False(t, janitor.IsRunning())
}

func TestJanitorRunOnce(t *testing.T) {
	root := t.TempDir()
	orphan := filepath.Join(root, "orphan")
	require.NoError(t, os.MkdirAll(orphan, 0o755))

	janitor := NewJanitor(config.JanitorConfig{MaxAge: time.Hour}, root)
	janitor.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	removed, err := janitor.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, orphan)
}
