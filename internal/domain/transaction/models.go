package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finmirror/internal/shared/apperrors"
)

const (
	// DateLayout is the calendar-date format used on the wire and in filters.
	DateLayout = "2006-01-02"

	MaxPageSize     = 100
	DefaultPageSize = 100
)

var ErrTransactionNotFound = apperrors.New(apperrors.ErrNotFound, "transaction not found")

// Transaction always has an income and an outcome leg. A pure income or
// expense books the same account on both legs with one amount zero.
type Transaction struct {
	ID                  uuid.UUID           `json:"id"`
	User                int64               `json:"user"`
	Changed             time.Time           `json:"changed"`
	Created             time.Time           `json:"created"`
	Deleted             bool                `json:"deleted"`
	Viewed              bool                `json:"viewed"`
	Hold                *bool               `json:"hold"`
	QRCode              *string             `json:"qrCode"`
	Source              *string             `json:"source"`
	IncomeBank          *string             `json:"incomeBankID"`
	IncomeInstrument    int64               `json:"incomeInstrument"`
	IncomeAccount       uuid.UUID           `json:"incomeAccount"`
	Income              decimal.Decimal     `json:"income"`
	OutcomeBank         *string             `json:"outcomeBankID"`
	OutcomeInstrument   int64               `json:"outcomeInstrument"`
	OutcomeAccount      uuid.UUID           `json:"outcomeAccount"`
	Outcome             decimal.Decimal     `json:"outcome"`
	OpIncome            decimal.NullDecimal `json:"opIncome"`
	OpIncomeInstrument  *int64              `json:"opIncomeInstrument"`
	OpOutcome           decimal.NullDecimal `json:"opOutcome"`
	OpOutcomeInstrument *int64              `json:"opOutcomeInstrument"`
	Merchant            uuid.NullUUID       `json:"merchant"`
	Payee               *string             `json:"payee"`
	OriginalPayee       *string             `json:"originalPayee"`
	Comment             *string             `json:"comment"`
	Date                time.Time           `json:"date"`
	MCC                 *int64              `json:"mcc"`
	ReminderMarker      uuid.NullUUID       `json:"reminderMarker"`
	Latitude            *float64            `json:"latitude"`
	Longitude           *float64            `json:"longitude"`
	Tags                []uuid.UUID         `json:"tags"`
}

// FirstTag returns the tag consulted for classification.
func (t *Transaction) FirstTag() (uuid.UUID, bool) {
	if len(t.Tags) == 0 {
		return uuid.Nil, false
	}
	return t.Tags[0], true
}

// AccountIDs returns the distinct accounts referenced by both legs.
func (t *Transaction) AccountIDs() []uuid.UUID {
	if t.IncomeAccount == t.OutcomeAccount {
		return []uuid.UUID{t.IncomeAccount}
	}
	return []uuid.UUID{t.IncomeAccount, t.OutcomeAccount}
}

// FindParams is the compound filter of the query engine. Nil pointers and
// empty slices mean "no constraint".
type FindParams struct {
	Offset    int
	Limit     int
	FromDate  *time.Time
	ToDate    *time.Time
	NotViewed bool
	AccountID *uuid.UUID
	TagIDs    []uuid.UUID
	Type      *Type
}

func (p *FindParams) Validate() error {
	if p.Offset < 0 {
		return apperrors.InvalidArgument("offset must be non-negative, got %d", p.Offset)
	}
	if p.Limit < 1 || p.Limit > MaxPageSize {
		return apperrors.InvalidArgument("limit must be between 1 and %d, got %d", MaxPageSize, p.Limit)
	}
	if p.FromDate != nil && p.ToDate != nil && p.FromDate.After(*p.ToDate) {
		return apperrors.InvalidArgument("fromDate %s is after toDate %s",
			p.FromDate.Format(DateLayout), p.ToDate.Format(DateLayout))
	}
	if p.Type != nil && !p.Type.Valid() {
		return apperrors.InvalidArgument("unknown transaction type %q", *p.Type)
	}
	return nil
}

// Kind selects the leg a created transaction books its amount on.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// CreateParams describes a single-account income or expense to push upstream.
type CreateParams struct {
	ID           uuid.UUID
	Kind         Kind
	AccountID    uuid.UUID
	TagID        uuid.UUID
	Amount       decimal.Decimal
	MerchantID   *uuid.UUID
	MerchantName *string
	Comment      *string
	Date         *time.Time
}

func (p *CreateParams) Validate() error {
	if p.Kind != KindIncome && p.Kind != KindExpense {
		return apperrors.InvalidArgument("unknown transaction kind %q", p.Kind)
	}
	if p.AccountID == uuid.Nil {
		return apperrors.InvalidArgument("accountId is required")
	}
	if p.TagID == uuid.Nil {
		return apperrors.InvalidArgument("tagId is required")
	}
	if !p.Amount.IsPositive() {
		return apperrors.InvalidArgument("amount must be positive")
	}
	return nil
}

// Enriched is a transaction with display fields resolved from reference data
// and its classification.
type Enriched struct {
	*Transaction
	Type                   Type     `json:"transactionType"`
	TagsTitles             []string `json:"tagsTitles"`
	IncomeAccountTitle     string   `json:"incomeAccountTitle"`
	OutcomeAccountTitle    string   `json:"outcomeAccountTitle"`
	IncomeInstrumentTitle  string   `json:"incomeInstrumentTitle"`
	OutcomeInstrumentTitle string   `json:"outcomeInstrumentTitle"`
	MerchantTitle          *string  `json:"merchantTitle"`
}

// Page is one slice of a filtered listing.
type Page struct {
	Items      []*Enriched `json:"transactions"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	TotalCount int         `json:"totalCount"`
}
