package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"finmirror/internal/domain/transaction"
)

var transactionTable = upsertTable{
	name: "transactions",
	columns: []string{
		"id", `"user"`, "changed", "created", "deleted", "viewed", "hold", "qr_code", "source",
		"income_bank", "income_instrument", "income_account", "income",
		"outcome_bank", "outcome_instrument", "outcome_account", "outcome",
		"op_income", "op_income_instrument", "op_outcome", "op_outcome_instrument",
		"merchant", "payee", "original_payee", "comment", "date", "mcc", "reminder_marker",
		"latitude", "longitude", "tags",
	},
}

var transactionColumns = "t." + strings.Join(transactionTable.columns, ", t.")

type TransactionRepository struct {
	db    *DB
	scope *Scope
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db, scope: NewScope(db)}
}

func scanTransaction(s rowScanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var tags pq.StringArray
	err := s.Scan(
		&tx.ID, &tx.User, &tx.Changed, &tx.Created, &tx.Deleted, &tx.Viewed, &tx.Hold, &tx.QRCode, &tx.Source,
		&tx.IncomeBank, &tx.IncomeInstrument, &tx.IncomeAccount, &tx.Income,
		&tx.OutcomeBank, &tx.OutcomeInstrument, &tx.OutcomeAccount, &tx.Outcome,
		&tx.OpIncome, &tx.OpIncomeInstrument, &tx.OpOutcome, &tx.OpOutcomeInstrument,
		&tx.Merchant, &tx.Payee, &tx.OriginalPayee, &tx.Comment, &tx.Date, &tx.MCC, &tx.ReminderMarker,
		&tx.Latitude, &tx.Longitude, &tags,
	)
	if err != nil {
		return nil, err
	}
	if tx.Tags, err = parseUUIDs(tags); err != nil {
		return nil, err
	}
	return &tx, nil
}

func transactionValues(tx *transaction.Transaction) []any {
	tags := tx.Tags
	if tags == nil {
		tags = []uuid.UUID{}
	}
	return []any{
		tx.ID, tx.User, tx.Changed, tx.Created, tx.Deleted, tx.Viewed, tx.Hold, tx.QRCode, tx.Source,
		tx.IncomeBank, tx.IncomeInstrument, tx.IncomeAccount, tx.Income,
		tx.OutcomeBank, tx.OutcomeInstrument, tx.OutcomeAccount, tx.Outcome,
		tx.OpIncome, tx.OpIncomeInstrument, tx.OpOutcome, tx.OpOutcomeInstrument,
		tx.Merchant, tx.Payee, tx.OriginalPayee, tx.Comment, tx.Date.Format(transaction.DateLayout), tx.MCC, tx.ReminderMarker,
		tx.Latitude, tx.Longitude, uuidArray(tags),
	}
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*transaction.Transaction, error) {
	if len(ids) == 0 {
		return []*transaction.Transaction{}, nil
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = ANY($1::uuid[])`
	return queryAll(ctx, r.db, "transactions", scanTransaction, query, uuidArray(ids))
}

// Exists reports whether a transaction with id is stored, deleted or not.
func (r *TransactionRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction: %w", err)
	}
	return exists, nil
}

// whereBuilder accumulates AND-ed conditions with numbered parameters.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) param(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *whereBuilder) add(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) String() string {
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func findWhere(p transaction.FindParams) *whereBuilder {
	w := &whereBuilder{}
	w.add("t.deleted = FALSE")

	if p.FromDate != nil {
		w.add("t.date >= " + w.param(p.FromDate.Format(transaction.DateLayout)) + "::date")
	}
	if p.ToDate != nil {
		w.add("t.date <= " + w.param(p.ToDate.Format(transaction.DateLayout)) + "::date")
	}
	if p.NotViewed {
		w.add("t.viewed = FALSE")
	}
	if p.AccountID != nil {
		ph := w.param(*p.AccountID)
		w.add("(t.income_account = " + ph + " OR t.outcome_account = " + ph + ")")
	}
	if len(p.TagIDs) > 0 {
		w.add("t.tags && " + w.param(uuidArray(p.TagIDs)) + "::uuid[]")
	}
	if p.Type != nil {
		w.add(transactionTypeSQL + " = " + w.param(string(*p.Type)))
	}
	return w
}

// Find validates params, then counts and pages the matching transactions.
func (r *TransactionRepository) Find(ctx context.Context, p transaction.FindParams) ([]*transaction.Transaction, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, err
	}

	w := findWhere(p)

	var (
		items []*transaction.Transaction
		total int
	)
	err := r.scope.InTx(ctx, func(ctx context.Context) error {
		countQuery := `SELECT count(*) FROM transactions t` + w.String()
		if err := r.db.QueryRowContext(ctx, countQuery, w.args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count transactions: %w", err)
		}

		pageArgs := append(append([]any{}, w.args...), p.Offset, p.Limit)
		n := len(w.args)
		pageQuery := `SELECT ` + transactionColumns + ` FROM transactions t` + w.String() +
			` ORDER BY t.date DESC, t.created DESC, t.id DESC` +
			` OFFSET $` + strconv.Itoa(n+1) + ` LIMIT $` + strconv.Itoa(n+2)

		var err error
		items, err = queryAll(ctx, r.db, "transactions", scanTransaction, pageQuery, pageArgs...)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *TransactionRepository) Upsert(ctx context.Context, transactions []*transaction.Transaction) error {
	return bulkUpsert(ctx, r.scope, transactionTable, transactions,
		func(tx *transaction.Transaction) uuid.UUID { return tx.ID },
		transactionValues,
	)
}
