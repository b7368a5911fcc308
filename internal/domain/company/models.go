package company

import (
	"context"
	"time"
)

type Company struct {
	ID          int64     `json:"id"`
	Changed     time.Time `json:"changed"`
	Title       string    `json:"title"`
	FullTitle   *string   `json:"fullTitle"`
	WWW         *string   `json:"www"`
	Country     *int64    `json:"country"`
	CountryCode *string   `json:"countryCode"`
	Deleted     bool      `json:"deleted"`
}

type Repository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*Company, error)
	List(ctx context.Context) ([]*Company, error)
	Upsert(ctx context.Context, companies []*Company) error
}
