package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Orchestrator owns the job queue and the workers that drain it.
type Orchestrator struct {
	analyzer *Analyzer
	jobs     *JobStore
	queue    chan *Job
	log      *slog.Logger
	workers  int
	sweep    time.Duration

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewOrchestrator(a *Analyzer, workers, queueSize int, jobTTL time.Duration, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	workers = max(workers, 1)
	queueSize = max(queueSize, 1)
	sweep := jobTTL / 4
	if sweep < time.Minute {
		sweep = time.Minute
	}
	return &Orchestrator{
		analyzer: a,
		jobs:     NewJobStore(jobTTL),
		queue:    make(chan *Job, queueSize),
		log:      log,
		workers:  workers,
		sweep:    sweep,
	}
}

// Start launches the workers and the expired-job sweeper. They run until
// ctx is cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	for id := range o.workers {
		o.wg.Add(1)
		go o.drain(ctx, NewWorker(o.analyzer, o.log.With("worker", id)))
	}
	o.wg.Add(1)
	go o.sweepExpired(ctx)
	o.log.Info("orchestrator started", "workers", o.workers, "queue_capacity", cap(o.queue))
}

func (o *Orchestrator) drain(ctx context.Context, w *Worker) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-o.queue:
			if !ok {
				return
			}
			queueDepth.Set(float64(len(o.queue)))
			w.Process(ctx, job)
		}
	}
}

func (o *Orchestrator) sweepExpired(ctx context.Context) {
	defer o.wg.Done()
	t := time.NewTicker(o.sweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := o.jobs.Cleanup(); n > 0 {
				o.log.Debug("expired jobs removed", "count", n)
			}
		}
	}
}

// Stop cancels in-flight work and waits for every goroutine to exit.
// Calling it more than once is safe.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		close(o.queue)
		o.wg.Wait()
	})
}

// Submit registers the job and enqueues it without blocking. A full
// queue marks the job failed and returns an error.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		queueDepth.Set(float64(len(o.queue)))
		return nil
	default:
		job.Finish(StatusFailed, "queue full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

func (o *Orchestrator) GetJob(id string) *Job { return o.jobs.Get(id) }

func (o *Orchestrator) QueueDepth() int { return len(o.queue) }

// Analyzer is shared with handlers that run synchronously, such as outline.
func (o *Orchestrator) Analyzer() *Analyzer { return o.analyzer }
