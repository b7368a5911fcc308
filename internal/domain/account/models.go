package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finmirror/internal/shared/apperrors"
)

// TypeDebt marks an IOU/liability ledger. Transfers touching such an account
// classify as lending or repayment instead of a plain transfer.
const TypeDebt = "debt"

// Domain errors
var (
	ErrAccountNotFound = apperrors.New(apperrors.ErrNotFound, "account not found")
)

// Account is a mirrored ledger account. Balance fields are kept exactly as
// the remote reports them.
type Account struct {
	ID                    uuid.UUID           `json:"id"`
	Changed               time.Time           `json:"changed"`
	User                  int64               `json:"user"`
	Instrument            int64               `json:"instrument"`
	Title                 string              `json:"title"`
	Role                  *int64              `json:"role"`
	Company               *int64              `json:"company"`
	Type                  string              `json:"type"`
	SyncID                []string            `json:"syncID"`
	Balance               decimal.Decimal     `json:"balance"`
	StartBalance          decimal.Decimal     `json:"startBalance"`
	CreditLimit           decimal.Decimal     `json:"creditLimit"`
	InBalance             bool                `json:"inBalance"`
	Savings               bool                `json:"savings"`
	EnableCorrection      bool                `json:"enableCorrection"`
	EnableSMS             bool                `json:"enableSMS"`
	Archive               bool                `json:"archive"`
	Private               bool                `json:"private"`
	Capitalization        *string             `json:"capitalization"`
	Percent               decimal.NullDecimal `json:"percent"`
	StartDate             *time.Time          `json:"startDate"`
	EndDateOffset         *int64              `json:"endDateOffset"`
	EndDateOffsetInterval *string             `json:"endDateOffsetInterval"`
	PayoffStep            *int64              `json:"payoffStep"`
	PayoffInterval        *string             `json:"payoffInterval"`
	BalanceCorrectionType string              `json:"balanceCorrectionType"`
}

// IsDebt reports whether the account is an IOU ledger. A nil account is not.
func (a *Account) IsDebt() bool {
	return a != nil && a.Type == TypeDebt
}

// TypeOf returns the account type, or "" for a nil account.
func TypeOf(a *Account) string {
	if a == nil {
		return ""
	}
	return a.Type
}

// ListFilter narrows account listings.
type ListFilter struct {
	// ShowArchive selects archived accounts instead of active ones.
	ShowArchive bool
	// ShowDebts keeps accounts of TypeDebt, which are hidden by default.
	ShowDebts bool
}
