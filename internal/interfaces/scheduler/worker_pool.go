package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultJobTimeout bounds a single job execution.
const DefaultJobTimeout = 2 * time.Minute

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool closed")
)

var (
	jobTracer          = otel.Tracer("finmirror/scheduler")
	jobMeter           = otel.Meter("finmirror/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

// WorkerPool runs submitted jobs on a fixed number of goroutines.
type WorkerPool struct {
	workerCount int
	jobDelay    time.Duration
	jobTimeout  time.Duration
	logger      *slog.Logger

	jobs   chan Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a pool. jobDelay is a pause a worker takes after
// each job; queueSize is the number of jobs that may wait for a worker.
func NewWorkerPool(workerCount int, jobDelay time.Duration, queueSize int, logger *slog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		jobDelay:    jobDelay,
		jobTimeout:  DefaultJobTimeout,
		logger:      logger,
		jobs:        make(chan Job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.logger.Info("starting worker pool", "workers", wp.workerCount)

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case job, ok := <-wp.jobs:
			if !ok {
				return
			}

			wp.processJob(id, job)

			if wp.jobDelay > 0 {
				select {
				case <-time.After(wp.jobDelay):
				case <-wp.ctx.Done():
					return
				}
			}
		}
	}
}

// processJob executes a single job with logging and telemetry. Failures are
// logged and counted; the job is not retried.
func (wp *WorkerPool) processJob(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
		),
	)
	defer span.End()

	start := time.Now()
	err := job.Execute(ctx)
	elapsed := time.Since(start)
	jobDuration.Record(ctx, elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		wp.logger.Error("job failed",
			"worker", workerID, "job", job.Description(), "duration", elapsed, "error", err)
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	wp.logger.Debug("job completed", "worker", workerID, "job", job.Description(), "duration", elapsed)
}

// Submit queues job without blocking. It returns ErrQueueFull when every
// queue slot is taken and ErrPoolClosed after shutdown started.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		return ErrQueueFull
	}
}

// SubmitBatch queues jobs and returns how many were accepted.
func (wp *WorkerPool) SubmitBatch(jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			wp.logger.Warn("job not submitted", "job", job.Description(), "error", err)
			continue
		}
		submitted++
	}
	return submitted
}

// ShutdownWithTimeout stops accepting jobs and waits for queued ones. Jobs
// still running when timeout expires are cancelled.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobs)
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Info("worker pool stopped")
	case <-time.After(timeout):
		wp.logger.Warn("worker pool shutdown timed out, cancelling running jobs", "timeout", timeout)
		wp.cancel()
		<-done
	}
	wp.cancel()
}
