// Package scratch manages the private working directory of each job.
//
// A job holds an exclusive file lock inside its directory for as long as it
// runs; Sweep only removes directories whose lock it can take.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

const lockName = ".lock"

// ErrBusy is returned when another job holds the directory
var ErrBusy = errors.New("scratch directory is in use")

// Dir is a locked job directory
type Dir struct {
	Path string
	lock *flock.Flock
}

// Acquire creates root/name and locks it for the caller
func Acquire(root, name string) (*Dir, error) {
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	lock := flock.New(filepath.Join(path, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock scratch dir: %w", err)
	}
	if !locked {
		return nil, ErrBusy
	}
	return &Dir{Path: path, lock: lock}, nil
}

// Release unlocks and removes the directory with everything in it
func (d *Dir) Release() {
	if err := d.lock.Unlock(); err != nil {
		logrus.Warnf("Failed to unlock scratch dir %s: %v", d.Path, err)
	}
	if err := os.RemoveAll(d.Path); err != nil {
		logrus.Warnf("Failed to remove scratch dir %s: %v", d.Path, err)
	}
}

// Sweep removes unlocked job directories under root last modified before now-maxAge.
// It returns how many directories were removed.
func Sweep(root string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}

		path := filepath.Join(root, entry.Name())
		lock := flock.New(filepath.Join(path, lockName))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			logrus.Warnf("Janitor: could not remove %s: %v", path, err)
		} else {
			removed++
		}
		_ = lock.Unlock()
	}
	return removed, nil
}
