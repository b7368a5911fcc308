package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"finmirror/internal/domain/syncer"
)

// Syncer is the part of the sync service the daemon drives.
type Syncer interface {
	SyncOnce(ctx context.Context, token string) (*syncer.Diff, error)
}

// SyncJob pulls one incremental diff with the daemon's own token.
type SyncJob struct {
	syncer Syncer
	token  string
	logger *slog.Logger
}

func NewSyncJob(s Syncer, token string, logger *slog.Logger) *SyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncJob{syncer: s, token: token, logger: logger}
}

func (j *SyncJob) Execute(ctx context.Context) error {
	diff, err := j.syncer.SyncOnce(ctx, j.token)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	attrs := []any{"server_timestamp", diff.ServerTimestamp}
	for kind, n := range diff.Counts() {
		attrs = append(attrs, kind, n)
	}
	j.logger.Info("sync completed", attrs...)
	return nil
}

func (j *SyncJob) Description() string {
	return "incremental sync"
}

// SyncJobProvider yields a single SyncJob per tick.
func SyncJobProvider(job *SyncJob) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		return []Job{job}, nil
	}
}
