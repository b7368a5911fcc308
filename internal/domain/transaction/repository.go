package transaction

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByID returns ErrTransactionNotFound when the transaction is absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Transaction, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Find returns one page of non-deleted transactions matching params,
	// ordered by date, created and id (all descending), plus the total
	// number of matches ignoring Offset and Limit.
	Find(ctx context.Context, params FindParams) ([]*Transaction, int, error)

	Upsert(ctx context.Context, transactions []*Transaction) error
}
