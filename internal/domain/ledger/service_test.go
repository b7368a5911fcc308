package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finmirror/internal/domain/account"
	"finmirror/internal/domain/instrument"
	"finmirror/internal/domain/merchant"
	"finmirror/internal/domain/syncer"
	"finmirror/internal/domain/tag"
	"finmirror/internal/domain/transaction"
	"finmirror/internal/domain/user"
	"finmirror/internal/shared/apperrors"
)

type MockScope struct {
	calls int
}

func (m *MockScope) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type MockAccounts struct {
	byID map[uuid.UUID]*account.Account
}

func (m *MockAccounts) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, account.ErrAccountNotFound
}

func (m *MockAccounts) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*account.Account, error) {
	var out []*account.Account
	for _, id := range ids {
		if a, ok := m.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAccounts) List(ctx context.Context, filter account.ListFilter) ([]*account.Account, error) {
	var out []*account.Account
	for _, a := range m.byID {
		if a.Archive == filter.ShowArchive && (filter.ShowDebts || !a.IsDebt()) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAccounts) Upsert(ctx context.Context, accounts []*account.Account) error { return nil }

type MockInstruments struct {
	items []*instrument.Instrument
}

func (m *MockInstruments) GetByIDs(ctx context.Context, ids []int64) ([]*instrument.Instrument, error) {
	var out []*instrument.Instrument
	for _, i := range m.items {
		for _, id := range ids {
			if i.ID == id {
				out = append(out, i)
			}
		}
	}
	return out, nil
}

func (m *MockInstruments) List(ctx context.Context) ([]*instrument.Instrument, error) {
	return m.items, nil
}

func (m *MockInstruments) Upsert(ctx context.Context, instruments []*instrument.Instrument) error {
	return nil
}

type MockMerchants struct {
	items []*merchant.Merchant
}

func (m *MockMerchants) GetByID(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	for _, item := range m.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, merchant.ErrMerchantNotFound
}

func (m *MockMerchants) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*merchant.Merchant, error) {
	var out []*merchant.Merchant
	for _, id := range ids {
		if item, err := m.GetByID(ctx, id); err == nil {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *MockMerchants) List(ctx context.Context) ([]*merchant.Merchant, error) { return m.items, nil }

func (m *MockMerchants) Upsert(ctx context.Context, merchants []*merchant.Merchant) error { return nil }

type MockTags struct {
	items    []*tag.Tag
	children map[uuid.UUID][]uuid.UUID
}

func (m *MockTags) GetByID(ctx context.Context, id uuid.UUID) (*tag.Tag, error) {
	for _, t := range m.items {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, tag.ErrTagNotFound
}

func (m *MockTags) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*tag.Tag, error) {
	var out []*tag.Tag
	for _, id := range ids {
		if t, err := m.GetByID(ctx, id); err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTags) List(ctx context.Context) ([]*tag.Tag, error) { return m.items, nil }

func (m *MockTags) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*tag.Tag, error) {
	return nil, nil
}

func (m *MockTags) ListChildrenMap(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	return m.children, nil
}

func (m *MockTags) Upsert(ctx context.Context, tags []*tag.Tag) error { return nil }

type MockTransactions struct {
	FindFunc func(ctx context.Context, params transaction.FindParams) ([]*transaction.Transaction, int, error)
	existing map[uuid.UUID]bool
}

func (m *MockTransactions) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return nil, transaction.ErrTransactionNotFound
}

func (m *MockTransactions) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*transaction.Transaction, error) {
	return nil, nil
}

func (m *MockTransactions) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.existing[id], nil
}

func (m *MockTransactions) Find(ctx context.Context, params transaction.FindParams) ([]*transaction.Transaction, int, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, params)
	}
	return nil, 0, nil
}

func (m *MockTransactions) Upsert(ctx context.Context, txs []*transaction.Transaction) error {
	return nil
}

type MockUsers struct {
	GetSingleFunc func(ctx context.Context) (*user.User, error)
}

func (m *MockUsers) GetSingle(ctx context.Context) (*user.User, error) {
	if m.GetSingleFunc != nil {
		return m.GetSingleFunc(ctx)
	}
	return &user.User{ID: 42}, nil
}

func (m *MockUsers) GetByIDs(ctx context.Context, ids []int64) ([]*user.User, error) { return nil, nil }

func (m *MockUsers) Upsert(ctx context.Context, users []*user.User) error { return nil }

type MockPusher struct {
	CreateAndSyncFunc func(ctx context.Context, token string, txs []*transaction.Transaction) (*syncer.Diff, error)
	pushed            []*transaction.Transaction
}

func (m *MockPusher) CreateAndSync(ctx context.Context, token string, txs []*transaction.Transaction) (*syncer.Diff, error) {
	m.pushed = append(m.pushed, txs...)
	if m.CreateAndSyncFunc != nil {
		return m.CreateAndSyncFunc(ctx, token, txs)
	}
	return &syncer.Diff{}, nil
}

type fixture struct {
	cash, debt      *account.Account
	food, groceries *tag.Tag
	salary, both    *tag.Tag
	shop            *merchant.Merchant
	scope           *MockScope
	txs             *MockTransactions
	pusher          *MockPusher
	users           *MockUsers
	svc             *Service
	today           time.Time
}

func newFixture() *fixture {
	f := &fixture{
		cash: &account.Account{ID: uuid.New(), Title: "Cash", Type: "cash", Instrument: 2},
		debt: &account.Account{ID: uuid.New(), Title: "Bob", Type: account.TypeDebt, Instrument: 2},
		shop: &merchant.Merchant{ID: uuid.New(), Title: "Corner Shop"},
	}
	f.food = &tag.Tag{ID: uuid.New(), Title: "Food", ShowOutcome: true}
	f.groceries = &tag.Tag{ID: uuid.New(), Title: "Groceries", ShowOutcome: true,
		Parent: uuid.NullUUID{UUID: f.food.ID, Valid: true}}
	f.salary = &tag.Tag{ID: uuid.New(), Title: "Salary", ShowIncome: true}
	f.both = &tag.Tag{ID: uuid.New(), Title: "Gifts", ShowIncome: true, ShowOutcome: true}

	f.scope = &MockScope{}
	f.txs = &MockTransactions{existing: map[uuid.UUID]bool{}}
	f.pusher = &MockPusher{}
	f.users = &MockUsers{}
	f.today = time.Date(2026, 1, 18, 21, 30, 0, 0, time.UTC)

	f.svc = NewService(f.scope, Repositories{
		Accounts: &MockAccounts{byID: map[uuid.UUID]*account.Account{
			f.cash.ID: f.cash,
			f.debt.ID: f.debt,
		}},
		Instruments: &MockInstruments{items: []*instrument.Instrument{{ID: 2, Title: "Russian Ruble"}}},
		Merchants:   &MockMerchants{items: []*merchant.Merchant{f.shop}},
		Tags: &MockTags{
			items:    []*tag.Tag{f.food, f.groceries, f.salary, f.both},
			children: map[uuid.UUID][]uuid.UUID{f.food.ID: {f.groceries.ID}},
		},
		Transactions: f.txs,
		Users:        f.users,
	}, f.pusher, nil)
	f.svc.now = func() time.Time { return f.today }
	return f
}

func TestGetAccounts_HidesDebtsByDefault(t *testing.T) {
	f := newFixture()

	got, err := f.svc.GetAccounts(context.Background(), false, false)
	if err != nil {
		t.Fatalf("GetAccounts() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != f.cash.ID {
		t.Errorf("GetAccounts() = %v, want only cash", got)
	}

	got, _ = f.svc.GetAccounts(context.Background(), false, true)
	if len(got) != 2 {
		t.Errorf("GetAccounts(showDebts) returned %d accounts, want 2", len(got))
	}

	got, _ = f.svc.GetAccounts(context.Background(), true, true)
	if got == nil || len(got) != 0 {
		t.Errorf("GetAccounts(showArchive) = %v, want empty non-nil", got)
	}
}

func TestGetTags_ResolvesChildren(t *testing.T) {
	f := newFixture()

	got, err := f.svc.GetTags(context.Background())
	if err != nil {
		t.Fatalf("GetTags() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("GetTags() returned %d tags", len(got))
	}
	for _, tg := range got {
		if tg.Children == nil {
			t.Errorf("tag %s has nil children", tg.Title)
		}
		if tg.ID == f.food.ID && (len(tg.Children) != 1 || tg.Children[0] != f.groceries.ID) {
			t.Errorf("Food children = %v", tg.Children)
		}
	}
	if f.scope.calls != 1 {
		t.Errorf("scope opened %d times, want 1", f.scope.calls)
	}
}

func TestGetTransactions_Enriches(t *testing.T) {
	f := newFixture()
	lent := &transaction.Transaction{
		ID:                uuid.New(),
		IncomeAccount:     f.debt.ID,
		OutcomeAccount:    f.cash.ID,
		Income:            decimal.NewFromInt(100),
		Outcome:           decimal.NewFromInt(100),
		IncomeInstrument:  2,
		OutcomeInstrument: 2,
	}
	shopping := &transaction.Transaction{
		ID:                uuid.New(),
		IncomeAccount:     f.cash.ID,
		OutcomeAccount:    f.cash.ID,
		Outcome:           decimal.NewFromInt(30),
		IncomeInstrument:  2,
		OutcomeInstrument: 2,
		Tags:              []uuid.UUID{f.groceries.ID, uuid.New()},
		Merchant:          uuid.NullUUID{UUID: f.shop.ID, Valid: true},
	}

	var gotParams transaction.FindParams
	f.txs.FindFunc = func(ctx context.Context, params transaction.FindParams) ([]*transaction.Transaction, int, error) {
		gotParams = params
		return []*transaction.Transaction{lent, shopping}, 7, nil
	}

	page, err := f.svc.GetTransactions(context.Background(), transaction.FindParams{Offset: 2, Limit: 2, NotViewed: true})
	if err != nil {
		t.Fatalf("GetTransactions() error = %v", err)
	}
	if !gotParams.NotViewed || gotParams.Offset != 2 {
		t.Errorf("params not forwarded: %+v", gotParams)
	}
	if page.TotalCount != 7 || page.Limit != 2 || page.Offset != 2 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}

	first := page.Items[0]
	if first.Type != transaction.TypeLentOut {
		t.Errorf("debt income leg type = %s, want %s", first.Type, transaction.TypeLentOut)
	}
	if first.IncomeAccountTitle != "Bob" || first.OutcomeAccountTitle != "Cash" || first.IncomeInstrumentTitle != "Russian Ruble" {
		t.Errorf("titles = %+v", first)
	}
	if first.TagsTitles == nil || len(first.TagsTitles) != 0 || first.MerchantTitle != nil {
		t.Errorf("untagged enrichment = %v / %v", first.TagsTitles, first.MerchantTitle)
	}

	second := page.Items[1]
	if second.Type != transaction.TypeExpense {
		t.Errorf("type = %s, want %s", second.Type, transaction.TypeExpense)
	}
	if len(second.TagsTitles) != 2 || second.TagsTitles[0] != "Food / Groceries" || second.TagsTitles[1] != "" {
		t.Errorf("TagsTitles = %q", second.TagsTitles)
	}
	if second.MerchantTitle == nil || *second.MerchantTitle != "Corner Shop" {
		t.Errorf("MerchantTitle = %v", second.MerchantTitle)
	}
}

func TestGetTransactions_InvalidParamsSkipStore(t *testing.T) {
	f := newFixture()
	f.txs.FindFunc = func(ctx context.Context, params transaction.FindParams) ([]*transaction.Transaction, int, error) {
		t.Fatal("Find must not be called")
		return nil, 0, nil
	}

	_, err := f.svc.GetTransactions(context.Background(), transaction.FindParams{Limit: 101})
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateTransaction(t *testing.T) {
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	name := "Street vendor"

	tests := []struct {
		name    string
		params  func(f *fixture) transaction.CreateParams
		setup   func(f *fixture)
		echo    bool
		wantErr error
		check   func(t *testing.T, f *fixture, got *transaction.Enriched)
	}{
		{
			name: "expense echoed by remote",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{ID: uuid.New(), Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: f.groceries.ID, Amount: decimal.RequireFromString("12.30"), MerchantID: &f.shop.ID}
			},
			echo: true,
			check: func(t *testing.T, f *fixture, got *transaction.Enriched) {
				tx := f.pusher.pushed[0]
				if !tx.Outcome.Equal(decimal.RequireFromString("12.30")) || !tx.Income.IsZero() {
					t.Errorf("legs = %s/%s", tx.Income, tx.Outcome)
				}
				if tx.IncomeAccount != f.cash.ID || tx.OutcomeAccount != f.cash.ID || tx.User != 42 {
					t.Errorf("pushed = %+v", tx)
				}
				if tx.Payee == nil || *tx.Payee != "Corner Shop" || !tx.Merchant.Valid {
					t.Errorf("payee = %v merchant = %v", tx.Payee, tx.Merchant)
				}
				if tx.Date.Format(transaction.DateLayout) != "2026-01-18" {
					t.Errorf("date = %v, want today", tx.Date)
				}
				if got.Type != transaction.TypeExpense || got.TagsTitles[0] != "Food / Groceries" {
					t.Errorf("enriched = %+v", got)
				}
			},
		},
		{
			name: "income not echoed returns local copy",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindIncome, AccountID: f.cash.ID,
					TagID: f.salary.ID, Amount: decimal.NewFromInt(1000), MerchantName: &name, Date: &date}
			},
			check: func(t *testing.T, f *fixture, got *transaction.Enriched) {
				if got.ID == uuid.Nil || got.ID != f.pusher.pushed[0].ID {
					t.Errorf("id = %s", got.ID)
				}
				if !got.Income.Equal(decimal.NewFromInt(1000)) || got.Type != transaction.TypeIncome {
					t.Errorf("got = %+v", got)
				}
				if got.Payee == nil || *got.Payee != name || got.Merchant.Valid {
					t.Errorf("payee = %v", got.Payee)
				}
				if !got.Date.Equal(date) {
					t.Errorf("date = %v", got.Date)
				}
			},
		},
		{
			name: "tag allowing both directions accepts expense",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: f.both.ID, Amount: decimal.NewFromInt(5)}
			},
			echo: true,
		},
		{
			name: "existing id conflicts",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
					Kind: transaction.KindExpense, AccountID: f.cash.ID, TagID: f.food.ID, Amount: decimal.NewFromInt(1)}
			},
			setup: func(f *fixture) {
				f.txs.existing[uuid.MustParse("11111111-1111-1111-1111-111111111111")] = true
			},
			wantErr: apperrors.ErrConflict,
		},
		{
			name: "unknown account",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: uuid.New(),
					TagID: f.food.ID, Amount: decimal.NewFromInt(1)}
			},
			wantErr: apperrors.ErrNotFound,
		},
		{
			name: "unknown tag",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: uuid.New(), Amount: decimal.NewFromInt(1)}
			},
			wantErr: apperrors.ErrNotFound,
		},
		{
			name: "unknown merchant",
			params: func(f *fixture) transaction.CreateParams {
				id := uuid.New()
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: f.food.ID, Amount: decimal.NewFromInt(1), MerchantID: &id}
			},
			wantErr: apperrors.ErrNotFound,
		},
		{
			name: "expense tag rejects income",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindIncome, AccountID: f.cash.ID,
					TagID: f.food.ID, Amount: decimal.NewFromInt(1)}
			},
			wantErr: apperrors.ErrInvalidArgument,
		},
		{
			name: "income tag rejects expense",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: f.salary.ID, Amount: decimal.NewFromInt(1)}
			},
			wantErr: apperrors.ErrInvalidArgument,
		},
		{
			name: "non-positive amount",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: f.food.ID, Amount: decimal.Zero}
			},
			wantErr: apperrors.ErrInvalidArgument,
		},
		{
			name: "no user mirrored",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: f.food.ID, Amount: decimal.NewFromInt(1)}
			},
			setup: func(f *fixture) {
				f.users.GetSingleFunc = func(ctx context.Context) (*user.User, error) {
					return nil, apperrors.InvariantViolation("no users")
				}
			},
			wantErr: apperrors.ErrInvariantViolation,
		},
		{
			name: "remote rejects token",
			params: func(f *fixture) transaction.CreateParams {
				return transaction.CreateParams{Kind: transaction.KindExpense, AccountID: f.cash.ID,
					TagID: f.food.ID, Amount: decimal.NewFromInt(1)}
			},
			setup: func(f *fixture) {
				f.pusher.CreateAndSyncFunc = func(ctx context.Context, token string, txs []*transaction.Transaction) (*syncer.Diff, error) {
					return nil, syncer.ErrRemoteAuth
				}
			},
			wantErr: syncer.ErrRemoteAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			if tt.echo {
				f.pusher.CreateAndSyncFunc = func(ctx context.Context, token string, txs []*transaction.Transaction) (*syncer.Diff, error) {
					echoed := *txs[0]
					return &syncer.Diff{ServerTimestamp: 1, Transactions: []*transaction.Transaction{&echoed}}, nil
				}
			}

			got, created, err := f.svc.CreateTransaction(context.Background(), "tok", tt.params(f))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if tt.wantErr != syncer.ErrRemoteAuth && len(f.pusher.pushed) != 0 {
					t.Error("nothing should be pushed after a validation failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTransaction() error = %v", err)
			}
			if created != tt.echo {
				t.Errorf("created = %v, want %v", created, tt.echo)
			}
			if len(f.pusher.pushed) != 1 {
				t.Fatalf("pushed %d transactions, want 1", len(f.pusher.pushed))
			}
			if tt.check != nil {
				tt.check(t, f, got)
			}
		})
	}
}
