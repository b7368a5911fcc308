package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"finmirror/internal/shared/apperrors"
)

type txKey struct{}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// Scope hands out one transaction per logical operation. The transaction
// lives in the context, so repositories called with that context share it
// and nested acquisitions join it instead of opening another.
type Scope struct {
	db *DB
}

func NewScope(db *DB) *Scope {
	return &Scope{db: db}
}

// Release ends an acquired scope. A nil err commits, anything else rolls
// back; the returned error is err itself or the commit/rollback failure.
type Release func(err error) error

func joinRelease(err error) error { return err }

// Acquire returns a context carrying an open transaction. When ctx already
// carries one, it is returned as is and the Release is a no-op that hands
// err back, leaving commit or rollback to the outermost acquirer.
//
// BEGIN runs detached from ctx cancellation so a pool connection is never
// abandoned half-acquired. If ctx was cancelled meanwhile, the fresh
// transaction is rolled back and ctx.Err() is returned.
func (s *Scope) Acquire(ctx context.Context) (context.Context, Release, error) {
	if txFromContext(ctx) != nil {
		return ctx, joinRelease, nil
	}

	spanCtx, span := dbTracer.Start(ctx, "db.Scope")

	tx, err := s.db.BeginTx(context.WithoutCancel(spanCtx), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return ctx, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		span.SetStatus(codes.Error, "cancelled during acquire")
		span.End()
		return ctx, nil, err
	}

	release := func(err error) error {
		defer span.End()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to commit: %w", err)
		}
		return nil
	}

	return context.WithValue(spanCtx, txKey{}, tx), release, nil
}

// InTx runs fn inside the scope, committing when fn returns nil and rolling
// back when it returns an error or panics.
func (s *Scope) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, release, err := s.Acquire(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = release(fmt.Errorf("panic in transaction: %v", p))
			panic(p)
		}
	}()

	return release(fn(ctx))
}

// CheckIsOpened fails unless ctx carries an open scope.
func (s *Scope) CheckIsOpened(ctx context.Context) error {
	if txFromContext(ctx) == nil {
		return apperrors.InvariantViolation("no connection scope is open")
	}
	return nil
}
