// Package ledger serves reads over the mirrored store and creates new
// transactions by pushing them upstream.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
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

// Scope groups reads into one transaction so a page and its reference data
// come from the same snapshot.
type Scope interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pusher sends locally built transactions upstream and merges the result.
type Pusher interface {
	CreateAndSync(ctx context.Context, token string, txs []*transaction.Transaction) (*syncer.Diff, error)
}

// Repositories bundles the stores the service reads from.
type Repositories struct {
	Accounts     account.Repository
	Instruments  instrument.Repository
	Merchants    merchant.Repository
	Tags         tag.Repository
	Transactions transaction.Repository
	Users        user.Repository
}

type Service struct {
	scope    Scope
	repos    Repositories
	accounts *account.Service
	pusher   Pusher
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(scope Scope, repos Repositories, pusher Pusher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		scope:    scope,
		repos:    repos,
		accounts: account.NewService(repos.Accounts),
		pusher:   pusher,
		now:      time.Now,
		logger:   logger.With("component", "ledger"),
	}
}

// GetAccounts lists accounts; archived and debt accounts are opt-in.
func (s *Service) GetAccounts(ctx context.Context, showArchive, showDebts bool) ([]*account.Account, error) {
	accounts, err := s.accounts.ListAccounts(ctx, account.ListFilter{ShowArchive: showArchive, ShowDebts: showDebts})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// GetTags lists every tag with the ids of its direct children.
func (s *Service) GetTags(ctx context.Context) ([]*tag.WithChildren, error) {
	var (
		tags     []*tag.Tag
		children map[uuid.UUID][]uuid.UUID
	)
	err := s.scope.InTx(ctx, func(ctx context.Context) error {
		var err error
		if tags, err = s.repos.Tags.List(ctx); err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		if children, err = s.repos.Tags.ListChildrenMap(ctx); err != nil {
			return fmt.Errorf("failed to list tag children: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*tag.WithChildren, 0, len(tags))
	for _, t := range tags {
		out = append(out, &tag.WithChildren{Tag: t, Children: nonNil(children[t.ID])})
	}
	return out, nil
}

func (s *Service) GetInstruments(ctx context.Context) ([]*instrument.Instrument, error) {
	instruments, err := s.repos.Instruments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return nonNil(instruments), nil
}

func (s *Service) GetMerchants(ctx context.Context) ([]*merchant.Merchant, error) {
	merchants, err := s.repos.Merchants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}
	return nonNil(merchants), nil
}

// GetTransactions returns one filtered page with display fields resolved.
func (s *Service) GetTransactions(ctx context.Context, params transaction.FindParams) (*transaction.Page, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	page := &transaction.Page{Limit: params.Limit, Offset: params.Offset}
	err := s.scope.InTx(ctx, func(ctx context.Context) error {
		txs, total, err := s.repos.Transactions.Find(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to find transactions: %w", err)
		}
		page.TotalCount = total

		page.Items, err = s.enrich(ctx, txs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// CreateTransaction books a single-account income or expense upstream and
// merges the response. created reports whether the remote echoed the new
// transaction back; when it did not, the locally built copy is returned.
func (s *Service) CreateTransaction(ctx context.Context, token string, params transaction.CreateParams) (*transaction.Enriched, bool, error) {
	if err := params.Validate(); err != nil {
		return nil, false, err
	}
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}

	local, err := s.buildTransaction(ctx, params)
	if err != nil {
		return nil, false, err
	}

	diff, err := s.pusher.CreateAndSync(ctx, token, []*transaction.Transaction{local})
	if err != nil {
		return nil, false, err
	}

	result, created := diff.Transaction(local.ID)
	if !created {
		s.logger.Warn("created transaction not returned by remote", "id", local.ID)
		result = local
	}

	items, err := s.enrich(ctx, []*transaction.Transaction{result})
	if err != nil {
		return nil, false, err
	}
	return items[0], created, nil
}

func (s *Service) buildTransaction(ctx context.Context, params transaction.CreateParams) (*transaction.Transaction, error) {
	exists, err := s.repos.Transactions.Exists(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check transaction: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("transaction %s already exists", params.ID)
	}

	owner, err := s.repos.Users.GetSingle(ctx)
	if err != nil {
		return nil, err
	}

	acc, err := s.repos.Accounts.GetByID(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}

	t, err := s.repos.Tags.GetByID(ctx, params.TagID)
	if err != nil {
		return nil, err
	}
	switch params.Kind {
	case transaction.KindIncome:
		if !t.Direction().AllowsIncome() {
			return nil, apperrors.InvalidArgument("tag %q cannot be used for income", t.Title)
		}
	case transaction.KindExpense:
		if !t.Direction().AllowsExpense() {
			return nil, apperrors.InvalidArgument("tag %q cannot be used for expenses", t.Title)
		}
	}

	var merchantID uuid.NullUUID
	payee := params.MerchantName
	if params.MerchantID != nil {
		m, err := s.repos.Merchants.GetByID(ctx, *params.MerchantID)
		if err != nil {
			return nil, err
		}
		merchantID = uuid.NullUUID{UUID: m.ID, Valid: true}
		payee = &m.Title
	}

	now := s.now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if params.Date != nil {
		date = *params.Date
	}

	income, outcome := decimal.Zero, decimal.Zero
	if params.Kind == transaction.KindIncome {
		income = params.Amount
	} else {
		outcome = params.Amount
	}

	return &transaction.Transaction{
		ID:                params.ID,
		User:              owner.ID,
		Changed:           now,
		Created:           now,
		IncomeInstrument:  acc.Instrument,
		IncomeAccount:     acc.ID,
		Income:            income,
		OutcomeInstrument: acc.Instrument,
		OutcomeAccount:    acc.ID,
		Outcome:           outcome,
		Merchant:          merchantID,
		Payee:             payee,
		OriginalPayee:     payee,
		Comment:           params.Comment,
		Date:              date,
		Tags:              []uuid.UUID{t.ID},
	}, nil
}

// enrich classifies txs and resolves the titles of everything they reference.
// References missing from the store resolve to empty titles.
func (s *Service) enrich(ctx context.Context, txs []*transaction.Transaction) ([]*transaction.Enriched, error) {
	out := make([]*transaction.Enriched, 0, len(txs))
	if len(txs) == 0 {
		return out, nil
	}

	var (
		accountIDs    []uuid.UUID
		instrumentIDs []int64
		merchantIDs   []uuid.UUID
	)
	for _, tx := range txs {
		accountIDs = append(accountIDs, tx.AccountIDs()...)
		instrumentIDs = append(instrumentIDs, tx.IncomeInstrument, tx.OutcomeInstrument)
		if tx.Merchant.Valid {
			merchantIDs = append(merchantIDs, tx.Merchant.UUID)
		}
	}

	accountsByID, err := s.accounts.IndexByID(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	instruments, err := s.repos.Instruments.GetByIDs(ctx, unique(instrumentIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}
	merchants, err := s.repos.Merchants.GetByIDs(ctx, unique(merchantIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load merchants: %w", err)
	}
	// Paths need the whole hierarchy, and the tag table is small.
	tags, err := s.repos.Tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	instrumentsByID := make(map[int64]*instrument.Instrument, len(instruments))
	for _, i := range instruments {
		instrumentsByID[i.ID] = i
	}
	merchantsByID := make(map[uuid.UUID]*merchant.Merchant, len(merchants))
	for _, m := range merchants {
		merchantsByID[m.ID] = m
	}
	tagsByID := tag.Index(tags)

	for _, tx := range txs {
		incomeAccount := accountsByID[tx.IncomeAccount]
		outcomeAccount := accountsByID[tx.OutcomeAccount]

		direction := tag.DirectionNone
		if id, ok := tx.FirstTag(); ok {
			direction = tagsByID[id].Direction()
		}

		e := &transaction.Enriched{
			Transaction: tx,
			Type: transaction.ClassifyTransaction(tx,
				account.TypeOf(incomeAccount), account.TypeOf(outcomeAccount), direction),
			TagsTitles:             make([]string, 0, len(tx.Tags)),
			IncomeAccountTitle:     accountTitle(incomeAccount),
			OutcomeAccountTitle:    accountTitle(outcomeAccount),
			IncomeInstrumentTitle:  instrumentTitle(instrumentsByID[tx.IncomeInstrument]),
			OutcomeInstrumentTitle: instrumentTitle(instrumentsByID[tx.OutcomeInstrument]),
		}
		for _, id := range tx.Tags {
			e.TagsTitles = append(e.TagsTitles, tag.Path(tagsByID, id))
		}
		if tx.Merchant.Valid {
			if m, ok := merchantsByID[tx.Merchant.UUID]; ok {
				e.MerchantTitle = &m.Title
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func accountTitle(a *account.Account) string {
	if a == nil {
		return ""
	}
	return a.Title
}

func instrumentTitle(i *instrument.Instrument) string {
	if i == nil {
		return ""
	}
	return i.Title
}

func unique[T comparable](ids []T) []T {
	seen := make(map[T]struct{}, len(ids))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

