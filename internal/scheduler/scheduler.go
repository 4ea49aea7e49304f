package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/config"
	"stream-stitch-relay/internal/scratch"
)

// Janitor periodically removes scratch directories abandoned by dead jobs
type Janitor struct {
	cron       *cron.Cron
	entryID    cron.EntryID
	config     config.JanitorConfig
	scratchDir string
	now        func() time.Time
	wg         sync.WaitGroup
	isRunning  bool
	mu         sync.RWMutex
}

// NewJanitor creates a new janitor for scratchDir
func NewJanitor(cfg config.JanitorConfig, scratchDir string) *Janitor {
	return &Janitor{
		config:     cfg,
		scratchDir: scratchDir,
		now:        time.Now,
	}
}

// Start starts the janitor
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isRunning {
		return fmt.Errorf("janitor is already running")
	}

	schedule := j.config.Schedule
	if schedule == "" {
		schedule = "0 */15 * * * *"
	}

	j.cron = cron.New(cron.WithSeconds())
	entryID, err := j.cron.AddFunc(schedule, j.sweep)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	j.entryID = entryID
	j.cron.Start()
	j.isRunning = true

	logrus.Infof("Janitor started with schedule: %s", schedule)
	return nil
}

// Stop stops the janitor
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isRunning {
		return nil
	}

	ctx := j.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Janitor stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Janitor stop timeout, forcing shutdown")
	}

	j.isRunning = false
	return nil
}

// IsRunning returns whether the janitor is running
func (j *Janitor) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.isRunning
}

// RunOnce sweeps immediately and returns the number of directories removed
func (j *Janitor) RunOnce() (int, error) {
	return scratch.Sweep(j.scratchDir, j.config.MaxAge, j.now())
}

// GetNextRun returns the time of the next scheduled sweep
func (j *Janitor) GetNextRun() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if !j.isRunning {
		return time.Time{}
	}
	return j.cron.Entry(j.entryID).Next
}

// Wait waits for an in-progress sweep to finish
func (j *Janitor) Wait() {
	j.wg.Wait()
}

func (j *Janitor) sweep() {
	j.wg.Add(1)
	defer j.wg.Done()

	start := time.Now()
	removed, err := j.RunOnce()
	if err != nil {
		logrus.Errorf("Janitor sweep failed: %v", err)
		return
	}
	if removed > 0 {
		logrus.Infof("Janitor removed %d abandoned scratch directories in %v", removed, time.Since(start))
	}
}
