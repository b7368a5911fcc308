package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"finmirror/internal/domain/transaction"
)

// DefaultTimeout bounds a single remote diff call.
const DefaultTimeout = 20 * time.Second

// logSampleSize is how many ids per entity kind are logged for a diff.
const logSampleSize = 3

var (
	syncTracer         = otel.Tracer("finmirror/syncer")
	syncMeter          = otel.Meter("finmirror/syncer")
	syncDuration, _    = syncMeter.Float64Histogram("sync.cycle.duration", metric.WithDescription("Sync cycle duration in seconds"), metric.WithUnit("s"))
	syncTotal, _       = syncMeter.Int64Counter("sync.cycle.total", metric.WithDescription("Sync cycles by operation and status"))
	syncEntityTotal, _ = syncMeter.Int64Counter("sync.entities.merged", metric.WithDescription("Merged entities by kind"))
)

// Service pulls diffs from the remote and merges them into the mirror.
type Service struct {
	scope   Scope
	repos   Repositories
	client  RemoteClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewService creates a syncer. A zero timeout selects DefaultTimeout.
func NewService(scope Scope, repos Repositories, client RemoteClient, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		scope:   scope,
		repos:   repos,
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "syncer"),
	}
}

// SyncOnce fetches everything changed since the stored cursor and merges it.
// On any failure the stored cursor is left untouched.
func (s *Service) SyncOnce(ctx context.Context, token string) (diff *Diff, err error) {
	ctx, finish := s.observe(ctx, "sync_once")
	defer func() { finish(err) }()

	cursor, err := s.repos.Cursor.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}

	diff, err = s.client.Fetch(ctx, token, cursor, s.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch diff since %d: %w", cursor, err)
	}
	s.logDiff(diff)

	if err := s.Merge(ctx, diff); err != nil {
		return nil, err
	}
	return diff, nil
}

// CreateAndSync pushes txs upstream together with the stored cursor and merges
// the returned diff, which carries the server's canonical copies of txs.
func (s *Service) CreateAndSync(ctx context.Context, token string, txs []*transaction.Transaction) (diff *Diff, err error) {
	ctx, finish := s.observe(ctx, "create_and_sync")
	defer func() { finish(err) }()

	cursor, err := s.repos.Cursor.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}

	diff, err = s.client.Push(ctx, token, cursor, txs, s.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to push %d transactions: %w", len(txs), err)
	}
	s.logDiff(diff)

	if err := s.Merge(ctx, diff); err != nil {
		return nil, err
	}
	return diff, nil
}

// DryRun fetches the diff since cursor and writes it to w without merging.
func (s *Service) DryRun(ctx context.Context, token string, cursor int64, w io.Writer, format Format) (diff *Diff, err error) {
	ctx, finish := s.observe(ctx, "dry_run")
	defer func() { finish(err) }()

	diff, err = s.client.Fetch(ctx, token, cursor, s.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch diff since %d: %w", cursor, err)
	}
	s.logDiff(diff)

	if err := Encode(w, diff, format); err != nil {
		return nil, fmt.Errorf("failed to write diff: %w", err)
	}
	return diff, nil
}

// Merge upserts every entity of diff and then stores its cursor, all inside
// one transaction.
func (s *Service) Merge(ctx context.Context, diff *Diff) error {
	ctx, span := syncTracer.Start(ctx, "syncer.merge")
	defer span.End()

	err := s.scope.InTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Accounts.Upsert(ctx, diff.Accounts); err != nil {
			return fmt.Errorf("failed to merge accounts: %w", err)
		}
		if err := s.repos.Companies.Upsert(ctx, diff.Companies); err != nil {
			return fmt.Errorf("failed to merge companies: %w", err)
		}
		if err := s.repos.Countries.Upsert(ctx, diff.Countries); err != nil {
			return fmt.Errorf("failed to merge countries: %w", err)
		}
		if err := s.repos.Instruments.Upsert(ctx, diff.Instruments); err != nil {
			return fmt.Errorf("failed to merge instruments: %w", err)
		}
		if err := s.repos.Merchants.Upsert(ctx, diff.Merchants); err != nil {
			return fmt.Errorf("failed to merge merchants: %w", err)
		}
		if err := s.repos.Tags.Upsert(ctx, diff.Tags); err != nil {
			return fmt.Errorf("failed to merge tags: %w", err)
		}
		if err := s.repos.Transactions.Upsert(ctx, diff.Transactions); err != nil {
			return fmt.Errorf("failed to merge transactions: %w", err)
		}
		if err := s.repos.Users.Upsert(ctx, diff.Users); err != nil {
			return fmt.Errorf("failed to merge users: %w", err)
		}
		if err := s.repos.Cursor.Save(ctx, diff.ServerTimestamp); err != nil {
			return fmt.Errorf("failed to store cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for kind, n := range diff.Counts() {
		syncEntityTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
	}
	return nil
}

func (s *Service) observe(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := syncTracer.Start(ctx, "syncer."+operation)
	start := time.Now()

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("sync failed", "operation", operation, "error", err)
		}
		attrs := metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		)
		syncTotal.Add(ctx, 1, attrs)
		syncDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		span.End()
	}
}

func (s *Service) logDiff(diff *Diff) {
	s.logger.Info("received diff", "server_timestamp", diff.ServerTimestamp)
	logKind(s.logger, "accounts", diff.Accounts, func(i int) any { return diff.Accounts[i].ID })
	logKind(s.logger, "companies", diff.Companies, func(i int) any { return diff.Companies[i].ID })
	logKind(s.logger, "countries", diff.Countries, func(i int) any { return diff.Countries[i].ID })
	logKind(s.logger, "instruments", diff.Instruments, func(i int) any { return diff.Instruments[i].ID })
	logKind(s.logger, "merchants", diff.Merchants, func(i int) any { return diff.Merchants[i].ID })
	logKind(s.logger, "tags", diff.Tags, func(i int) any { return diff.Tags[i].ID })
	logKind(s.logger, "transactions", diff.Transactions, func(i int) any { return diff.Transactions[i].ID })
	logKind(s.logger, "users", diff.Users, func(i int) any { return diff.Users[i].ID })
}

func logKind[T any](logger *slog.Logger, kind string, items []T, id func(i int) any) {
	if len(items) == 0 {
		return
	}
	n := min(len(items), logSampleSize)
	sample := make([]any, n)
	for i := range n {
		sample[i] = id(i)
	}
	logger.Info("found changed entities", "kind", kind, "count", len(items), "sample", sample)
}
