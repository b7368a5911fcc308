package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// GetByID retrieves an account by its ID, or ErrAccountNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByIDs retrieves the accounts that exist among ids; empty ids issue no query
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Account, error)

	// List retrieves accounts matching the filter
	List(ctx context.Context, filter ListFilter) ([]*Account, error)

	// Upsert inserts or fully overwrites accounts by ID
	Upsert(ctx context.Context, accounts []*Account) error
}
