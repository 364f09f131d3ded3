// Package pipeline builds webs concurrently: each submitted web is
// loaded, tangled and woven by one worker goroutine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/litweb/internal/config"
)

const queueSize = 64

// Orchestrator manages the build workers.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	log     *slog.Logger
	cfg     config.Config
	version string

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start before submitting.
func NewOrchestrator(cfg config.Config, version string, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:    NewJobStore(),
		queue:   make(chan *Job, queueSize),
		log:     log,
		cfg:     cfg,
		version: version,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.cfg, o.version, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}
}

// Stop lets the workers drain the queue, then waits for them.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	o.wg.Wait()
	if o.cancel != nil {
		o.cancel()
	}
}

// Submit queues a job, waiting for room in the queue.
func (o *Orchestrator) Submit(ctx context.Context, job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return fmt.Errorf("pipeline stopped")
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	case <-ctx.Done():
		job.finish(StatusFailed, "queued")
		return ctx.Err()
	}
}

// Run builds every path and waits for the results, returned in the order
// given.
func (o *Orchestrator) Run(ctx context.Context, paths []string) ([]JobSnapshot, error) {
	jobs := make([]*Job, 0, len(paths))
	for _, p := range paths {
		job := NewJob(p)
		if err := o.Submit(ctx, job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	snaps := make([]JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		select {
		case <-job.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		snaps = append(snaps, job.Snapshot())
	}
	return snaps, nil
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Latest returns the most recent job for a web path.
func (o *Orchestrator) Latest(path string) *Job {
	return o.jobs.Latest(path)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
