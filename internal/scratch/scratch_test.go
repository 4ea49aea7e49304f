package scratch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusive(t *testing.T) {
	root := t.TempDir()

	dir, err := Acquire(root, "req-1")
	require.NoError(t, err)
	assert.DirExists(t, dir.Path)

	_, err = Acquire(root, "req-1")
	assert.ErrorIs(t, err, ErrBusy)

	dir.Release()
	assert.NoDirExists(t, dir.Path)
}

func TestSweepSkipsLockedAndFreshDirs(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	active, err := Acquire(root, "active")
	require.NoError(t, err)
	defer active.Release()

	abandoned := filepath.Join(root, "abandoned")
	require.NoError(t, os.MkdirAll(abandoned, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(abandoned, "seg-1.ts"), []byte("x"), 0o644))

	fresh := filepath.Join(root, "fresh")
	require.NoError(t, os.MkdirAll(fresh, 0o755))

	for _, p := range []string{active.Path, abandoned} {
		require.NoError(t, os.Chtimes(p, old, old))
	}

	removed, err := Sweep(root, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, abandoned)
	assert.DirExists(t, active.Path)
	assert.DirExists(t, fresh)
}

func TestSweepMissingRoot(t *testing.T) {
	removed, err := Sweep(filepath.Join(t.TempDir(), "nope"), time.Hour, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
