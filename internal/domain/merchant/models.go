package merchant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"finmirror/internal/shared/apperrors"
)

var ErrMerchantNotFound = apperrors.New(apperrors.ErrNotFound, "merchant not found")

type Merchant struct {
	ID      uuid.UUID `json:"id"`
	Changed time.Time `json:"changed"`
	User    int64     `json:"user"`
	Title   string    `json:"title"`
}

type Repository interface {
	// GetByID returns ErrMerchantNotFound when the merchant is absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Merchant, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Merchant, error)
	List(ctx context.Context) ([]*Merchant, error)
	Upsert(ctx context.Context, merchants []*Merchant) error
}
