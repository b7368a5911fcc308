package country

import "context"

// Country carries no change timestamp; the remote resends it wholesale.
type Country struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Currency int64   `json:"currency"`
	Domain   *string `json:"domain"`
}

type Repository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*Country, error)
	List(ctx context.Context) ([]*Country, error)
	Upsert(ctx context.Context, countries []*Country) error
}
