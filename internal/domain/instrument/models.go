package instrument

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is a currency with its rate against the base currency.
type Instrument struct {
	ID         int64           `json:"id"`
	Changed    time.Time       `json:"changed"`
	Title      string          `json:"title"`
	ShortTitle string          `json:"shortTitle"`
	Symbol     string          `json:"symbol"`
	Rate       decimal.Decimal `json:"rate"`
}

type Repository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*Instrument, error)
	List(ctx context.Context) ([]*Instrument, error)
	Upsert(ctx context.Context, instruments []*Instrument) error
}
