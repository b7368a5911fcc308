package user

import "context"

// Repository defines the interface for user data access
type Repository interface {
	// GetSingle returns the only stored user. Zero or several rows are an
	// invariant violation: storage is single-tenant.
	GetSingle(ctx context.Context) (*User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*User, error)
	Upsert(ctx context.Context, users []*User) error
}
