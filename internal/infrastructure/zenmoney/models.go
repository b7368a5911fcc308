package zenmoney

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wire shapes of the /v8/diff endpoint. Timestamps are unix seconds and the
// transaction date is a calendar date string.

type diffRequest struct {
	ServerTimestamp        int64         `json:"serverTimestamp"`
	CurrentClientTimestamp int64         `json:"currentClientTimestamp"`
	Transaction            []Transaction `json:"transaction,omitempty"`
}

// DiffResponse is the decoded response body.
type DiffResponse struct {
	ServerTimestamp int64         `json:"serverTimestamp"`
	Account         []Account     `json:"account"`
	Company         []Company     `json:"company"`
	Country         []Country     `json:"country"`
	Instrument      []Instrument  `json:"instrument"`
	Merchant        []Merchant    `json:"merchant"`
	Tag             []Tag         `json:"tag"`
	Transaction     []Transaction `json:"transaction"`
	User            []User        `json:"user"`
}

// Number is a decimal that always travels as a bare JSON number.
type Number struct {
	decimal.Decimal
}

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// NullNumber is a Number that may be null.
type NullNumber struct {
	decimal.NullDecimal
}

func (n NullNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Decimal.String()), nil
}

type Account struct {
	ID                    uuid.UUID  `json:"id"`
	Changed               int64      `json:"changed"`
	User                  int64      `json:"user"`
	Instrument            int64      `json:"instrument"`
	Title                 string     `json:"title"`
	Role                  *int64     `json:"role"`
	Company               *int64     `json:"company"`
	Type                  string     `json:"type"`
	SyncID                []string   `json:"syncID"`
	Balance               Number     `json:"balance"`
	StartBalance          Number     `json:"startBalance"`
	CreditLimit           Number     `json:"creditLimit"`
	InBalance             bool       `json:"inBalance"`
	Savings               bool       `json:"savings"`
	EnableCorrection      bool       `json:"enableCorrection"`
	EnableSMS             bool       `json:"enableSMS"`
	Archive               bool       `json:"archive"`
	Private               bool       `json:"private"`
	Capitalization        *string    `json:"capitalization"`
	Percent               NullNumber `json:"percent"`
	StartDate             *int64     `json:"startDate"`
	EndDateOffset         *int64     `json:"endDateOffset"`
	EndDateOffsetInterval *string    `json:"endDateOffsetInterval"`
	PayoffStep            *int64     `json:"payoffStep"`
	PayoffInterval        *string    `json:"payoffInterval"`
	BalanceCorrectionType string     `json:"balanceCorrectionType"`
}

type Transaction struct {
	ID                  uuid.UUID   `json:"id"`
	Changed             int64       `json:"changed"`
	Created             int64       `json:"created"`
	User                int64       `json:"user"`
	Deleted             bool        `json:"deleted"`
	Hold                *bool       `json:"hold"`
	Viewed              bool        `json:"viewed"`
	QRCode              *string     `json:"qrCode"`
	IncomeBank          *string     `json:"incomeBankID"`
	IncomeInstrument    int64       `json:"incomeInstrument"`
	IncomeAccount       uuid.UUID   `json:"incomeAccount"`
	Income              Number      `json:"income"`
	OutcomeBank         *string     `json:"outcomeBankID"`
	OutcomeInstrument   int64       `json:"outcomeInstrument"`
	OutcomeAccount      *uuid.UUID  `json:"outcomeAccount"`
	Outcome             Number      `json:"outcome"`
	Merchant            *uuid.UUID  `json:"merchant"`
	Payee               *string     `json:"payee"`
	OriginalPayee       *string     `json:"originalPayee"`
	Comment             *string     `json:"comment"`
	Date                string      `json:"date"`
	MCC                 *int64      `json:"mcc"`
	ReminderMarker      *uuid.UUID  `json:"reminderMarker"`
	OpIncome            NullNumber  `json:"opIncome"`
	OpIncomeInstrument  *int64      `json:"opIncomeInstrument"`
	OpOutcome           NullNumber  `json:"opOutcome"`
	OpOutcomeInstrument *int64      `json:"opOutcomeInstrument"`
	Latitude            *float64    `json:"latitude"`
	Longitude           *float64    `json:"longitude"`
	Source              *string     `json:"source"`
	Tag                 []uuid.UUID `json:"tag"`
}

type User struct {
	ID                      int64   `json:"id"`
	Changed                 int64   `json:"changed"`
	Currency                int64   `json:"currency"`
	Parent                  *int64  `json:"parent"`
	Country                 *int64  `json:"country"`
	CountryCode             string  `json:"countryCode"`
	Email                   *string `json:"email"`
	Login                   *string `json:"login"`
	MonthStartDay           int     `json:"monthStartDay"`
	IsForecastEnabled       bool    `json:"isForecastEnabled"`
	PlanBalanceMode         string  `json:"planBalanceMode"`
	PlanSettings            string  `json:"planSettings"`
	PaidTill                int64   `json:"paidTill"`
	Subscription            *string `json:"subscription"`
	SubscriptionRenewalDate *string `json:"subscriptionRenewalDate"`
}

type Tag struct {
	ID            uuid.UUID  `json:"id"`
	Changed       int64      `json:"changed"`
	User          int64      `json:"user"`
	Title         string     `json:"title"`
	Parent        *uuid.UUID `json:"parent"`
	Icon          *string    `json:"icon"`
	StaticID      *string    `json:"staticId"`
	Picture       *string    `json:"picture"`
	Color         *int64     `json:"color"`
	ShowIncome    bool       `json:"showIncome"`
	ShowOutcome   bool       `json:"showOutcome"`
	BudgetIncome  bool       `json:"budgetIncome"`
	BudgetOutcome bool       `json:"budgetOutcome"`
	Required      *bool      `json:"required"`
	Archive       bool       `json:"archive"`
}

type Instrument struct {
	ID         int64  `json:"id"`
	Changed    int64  `json:"changed"`
	Title      string `json:"title"`
	ShortTitle string `json:"shortTitle"`
	Symbol     string `json:"symbol"`
	Rate       Number `json:"rate"`
}

type Country struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Currency int64   `json:"currency"`
	Domain   *string `json:"domain"`
}

type Merchant struct {
	ID      uuid.UUID `json:"id"`
	Changed int64     `json:"changed"`
	User    int64     `json:"user"`
	Title   string    `json:"title"`
}

type Company struct {
	ID          int64   `json:"id"`
	Changed     int64   `json:"changed"`
	Title       string  `json:"title"`
	FullTitle   *string `json:"fullTitle"`
	WWW         *string `json:"www"`
	Country     *int64  `json:"country"`
	CountryCode *string `json:"countryCode"`
	Deleted     bool    `json:"deleted"`
}
