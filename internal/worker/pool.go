package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/config"
	"stream-stitch-relay/internal/model"
	"stream-stitch-relay/internal/queue"
	"stream-stitch-relay/internal/service"
)

// Source leases work items from the queue
type Source interface {
	Claim(ctx context.Context) (*queue.Delivery, error)
	Ack(ctx context.Context, id uint) error
}

// Processor runs one work item to completion
type Processor interface {
	Process(ctx context.Context, item model.WorkItem) error
}

// Pool runs a fixed number of workers that drain the queue
type Pool struct {
	source       Source
	processor    Processor
	concurrency  int
	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	isRunning    bool
	mu           sync.RWMutex
}

// NewPool creates a new worker pool
func NewPool(cfg config.WorkerConfig, source Source, processor Processor) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Pool{
		source:       source,
		processor:    processor,
		concurrency:  concurrency,
		pollInterval: poll,
	}
}

// Start launches the workers
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("worker pool is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.loop(p.ctx, i)
	}
	p.isRunning = true

	logrus.Infof("Worker pool started with %d workers", p.concurrency)
	return nil
}

// Stop cancels in-flight jobs and waits for the workers to exit.
// Items whose jobs were interrupted are redelivered after their lease lapses.
func (p *Pool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return nil
	}

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Worker pool stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Worker pool stop timeout, forcing shutdown")
	}

	p.isRunning = false
	return nil
}

// IsRunning returns whether the pool is running
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isRunning
}

// Wait waits for all workers to exit
func (p *Pool) Wait() {
	p.wg.Wait()
}

// RunOnce claims and processes at most one item. It reports whether an item was claimed.
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	d, err := p.source.Claim(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim work item: %w", err)
	}
	if d == nil {
		return false, nil
	}

	log := logrus.WithFields(logrus.Fields{
		"request_id": d.Item.RequestID,
		"delivery":   d.ID,
		"attempt":    d.Attempts,
	})
	if d.Attempts > 1 {
		log.Warn("Processing redelivered work item")
	}

	if err := p.process(ctx, d.Item); err != nil {
		if errors.Is(err, service.ErrJobInProgress) {
			log.Info("Work item is held by another worker, leaving it leased")
		} else {
			log.WithError(err).Error("Failed to process work item")
		}
		return true, nil
	}

	if ctx.Err() != nil {
		log.Warn("Worker stopped mid-job, item will be redelivered")
		return true, nil
	}

	if err := p.source.Ack(ctx, d.ID); err != nil {
		return true, fmt.Errorf("failed to ack work item: %w", err)
	}
	return true, nil
}

// process shields the worker from a panicking processor; the item is left leased
func (p *Pool) process(ctx context.Context, item model.WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work item panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return p.processor.Process(ctx, item)
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	log := logrus.WithField("worker", id)

	for {
		if ctx.Err() != nil {
			return
		}

		claimed, err := p.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Worker iteration failed")
		}
		if claimed && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.pollInterval):
		}
	}
}
