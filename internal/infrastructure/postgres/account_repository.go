package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"finmirror/internal/domain/account"
)

// rowScanner is satisfied by *sql.Rows and *tracedRow.
type rowScanner interface {
	Scan(dest ...any) error
}

var accountTable = upsertTable{
	name: "accounts",
	columns: []string{
		"id", "changed", `"user"`, "instrument", "title", "role", "company", "type", "sync_id",
		"balance", "start_balance", "credit_limit", "in_balance", "savings", "enable_correction",
		"enable_sms", "archive", "private", "capitalization", "percent", "start_date",
		"end_date_offset", "end_date_offset_interval", "payoff_step", "payoff_interval",
		"balance_correction_type",
	},
}

var accountColumns = strings.Join(accountTable.columns, ", ")

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db    *DB
	scope *Scope
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db, scope: NewScope(db)}
}

func scanAccount(s rowScanner) (*account.Account, error) {
	var a account.Account
	var syncID pq.StringArray
	err := s.Scan(
		&a.ID, &a.Changed, &a.User, &a.Instrument, &a.Title, &a.Role, &a.Company, &a.Type, &syncID,
		&a.Balance, &a.StartBalance, &a.CreditLimit, &a.InBalance, &a.Savings, &a.EnableCorrection,
		&a.EnableSMS, &a.Archive, &a.Private, &a.Capitalization, &a.Percent, &a.StartDate,
		&a.EndDateOffset, &a.EndDateOffsetInterval, &a.PayoffStep, &a.PayoffInterval,
		&a.BalanceCorrectionType,
	)
	if err != nil {
		return nil, err
	}
	a.SyncID = []string(syncID)
	return &a, nil
}

func accountValues(a *account.Account) []any {
	syncID := a.SyncID
	if syncID == nil {
		syncID = []string{}
	}
	return []any{
		a.ID, a.Changed, a.User, a.Instrument, a.Title, a.Role, a.Company, a.Type, pq.StringArray(syncID),
		a.Balance, a.StartBalance, a.CreditLimit, a.InBalance, a.Savings, a.EnableCorrection,
		a.EnableSMS, a.Archive, a.Private, a.Capitalization, a.Percent, a.StartDate,
		a.EndDateOffset, a.EndDateOffsetInterval, a.PayoffStep, a.PayoffInterval,
		a.BalanceCorrectionType,
	}
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetByIDs retrieves the accounts that exist among ids
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*account.Account, error) {
	if len(ids) == 0 {
		return []*account.Account{}, nil
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1::uuid[])`
	return r.query(ctx, query, uuidArray(ids))
}

// List retrieves either active or archived accounts, hiding debt ledgers
// unless filter.ShowDebts is set
func (r *AccountRepository) List(ctx context.Context, filter account.ListFilter) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE archive = $1`
	args := []any{filter.ShowArchive}
	if !filter.ShowDebts {
		query += ` AND type <> $2`
		args = append(args, account.TypeDebt)
	}
	query += ` ORDER BY title ASC, id ASC`

	return r.query(ctx, query, args...)
}

// Upsert inserts or fully overwrites accounts by ID
func (r *AccountRepository) Upsert(ctx context.Context, accounts []*account.Account) error {
	return bulkUpsert(ctx, r.scope, accountTable, accounts,
		func(a *account.Account) uuid.UUID { return a.ID },
		accountValues,
	)
}

func (r *AccountRepository) query(ctx context.Context, query string, args ...any) ([]*account.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*account.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
