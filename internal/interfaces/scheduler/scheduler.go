package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// JobProvider lists the jobs for one tick.
type JobProvider func(ctx context.Context) ([]Job, error)

type Config struct {
	Interval     time.Duration
	WorkerCount  int
	JobDelay     time.Duration
	QueueSize    int
	RunOnStartup bool
	JobProvider  JobProvider
}

// Scheduler submits the provider's jobs to a worker pool every Interval.
// A tick that finds the queue full drops its jobs; the next tick retries.
type Scheduler struct {
	pool        *WorkerPool
	interval    time.Duration
	runOnStart  bool
	jobProvider JobProvider
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewScheduler(cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	if cfg.JobProvider == nil {
		return nil, errors.New("scheduler job provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pool:        NewWorkerPool(cfg.WorkerCount, cfg.JobDelay, cfg.QueueSize, logger),
		interval:    cfg.Interval,
		runOnStart:  cfg.RunOnStartup,
		jobProvider: cfg.JobProvider,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start launches the worker pool and the tick loop.
func (s *Scheduler) Start() {
	s.pool.Start()

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("scheduler started", "interval", s.interval, "run_on_startup", s.runOnStart)
}

// Run starts the scheduler and blocks until ctx is done, then shuts down
// within timeout.
func (s *Scheduler) Run(ctx context.Context, timeout time.Duration) error {
	s.Start()
	<-ctx.Done()
	s.Shutdown(timeout)
	return nil
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	if s.runOnStart {
		s.tick()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		s.logger.Error("failed to list jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	if submitted := s.pool.SubmitBatch(jobs); submitted < len(jobs) {
		s.logger.Warn("some jobs were dropped", "submitted", submitted, "total", len(jobs))
	}
}

// Shutdown stops the tick loop, then drains the worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.once.Do(func() {
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			s.logger.Warn("timed out waiting for scheduler loop")
		}

		s.pool.ShutdownWithTimeout(timeout)
		s.logger.Info("scheduler stopped")
	})
}
