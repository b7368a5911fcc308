package syncer

import (
	"context"
	"errors"
	"time"

	"finmirror/internal/domain/account"
	"finmirror/internal/domain/company"
	"finmirror/internal/domain/country"
	"finmirror/internal/domain/instrument"
	"finmirror/internal/domain/merchant"
	"finmirror/internal/domain/tag"
	"finmirror/internal/domain/transaction"
	"finmirror/internal/domain/user"
)

var (
	// ErrRemoteAuth means the upstream rejected the credential.
	ErrRemoteAuth = errors.New("remote authentication failed")
	// ErrRemoteClient covers every other upstream failure.
	ErrRemoteClient = errors.New("remote request failed")
)

// RemoteClient talks to the upstream diff endpoint. Neither call retries.
type RemoteClient interface {
	Fetch(ctx context.Context, token string, cursor int64, timeout time.Duration) (*Diff, error)
	Push(ctx context.Context, token string, cursor int64, txs []*transaction.Transaction, timeout time.Duration) (*Diff, error)
}

// Scope runs fn inside one transaction, joining an enclosing one if ctx
// already carries it.
type Scope interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Upserter[T any] interface {
	Upsert(ctx context.Context, items []T) error
}

type CursorRepository interface {
	Get(ctx context.Context) (int64, error)
	Save(ctx context.Context, cursor int64) error
}

// Repositories are the merge targets of a diff.
type Repositories struct {
	Accounts     Upserter[*account.Account]
	Companies    Upserter[*company.Company]
	Countries    Upserter[*country.Country]
	Instruments  Upserter[*instrument.Instrument]
	Merchants    Upserter[*merchant.Merchant]
	Tags         Upserter[*tag.Tag]
	Transactions Upserter[*transaction.Transaction]
	Users        Upserter[*user.User]
	Cursor       CursorRepository
}
