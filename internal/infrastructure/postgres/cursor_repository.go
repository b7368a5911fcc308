package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finmirror/internal/shared/apperrors"
)

// CursorRepository stores the sync cursor as a single timestamptz row.
// Callers see whole unix seconds.
type CursorRepository struct {
	db    *DB
	scope *Scope
}

func NewCursorRepository(db *DB) *CursorRepository {
	return &CursorRepository{db: db, scope: NewScope(db)}
}

func (r *CursorRepository) Get(ctx context.Context) (int64, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT last_synced_timestamp FROM last_synced_timestamp WHERE id = 1`).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.InvariantViolation("cursor row is missing; run migrations")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}
	return ts.Unix(), nil
}

// Save advances the cursor. It must run inside the scope that merged the
// diff, so the cursor never moves past data that was rolled back.
func (r *CursorRepository) Save(ctx context.Context, cursor int64) error {
	if err := r.scope.CheckIsOpened(ctx); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE last_synced_timestamp SET last_synced_timestamp = $1 WHERE id = 1`,
		time.Unix(cursor, 0).UTC())
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.InvariantViolation("cursor row is missing; run migrations")
	}
	return nil
}
