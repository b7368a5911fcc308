package tag

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByID returns ErrTagNotFound when the tag is absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Tag, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Tag, error)
	List(ctx context.Context) ([]*Tag, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*Tag, error)
	// ListChildrenMap returns every parent id mapped to its children's ids.
	ListChildrenMap(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error)
	Upsert(ctx context.Context, tags []*Tag) error
}
