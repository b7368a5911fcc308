package zenmoney

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"finmirror/internal/domain/account"
	"finmirror/internal/domain/company"
	"finmirror/internal/domain/country"
	"finmirror/internal/domain/instrument"
	"finmirror/internal/domain/merchant"
	"finmirror/internal/domain/syncer"
	"finmirror/internal/domain/tag"
	"finmirror/internal/domain/transaction"
	"finmirror/internal/domain/user"
)

func unix(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

func unixPtr(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := unix(*ts)
	return &t
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

// toDiff converts a decoded response into domain entities.
func toDiff(resp *DiffResponse) (*syncer.Diff, error) {
	diff := &syncer.Diff{ServerTimestamp: resp.ServerTimestamp}

	for _, a := range resp.Account {
		diff.Accounts = append(diff.Accounts, toAccount(a))
	}
	for _, c := range resp.Company {
		diff.Companies = append(diff.Companies, &company.Company{
			ID:          c.ID,
			Changed:     unix(c.Changed),
			Title:       c.Title,
			FullTitle:   c.FullTitle,
			WWW:         c.WWW,
			Country:     c.Country,
			CountryCode: c.CountryCode,
			Deleted:     c.Deleted,
		})
	}
	for _, c := range resp.Country {
		diff.Countries = append(diff.Countries, &country.Country{
			ID:       c.ID,
			Title:    c.Title,
			Currency: c.Currency,
			Domain:   c.Domain,
		})
	}
	for _, i := range resp.Instrument {
		diff.Instruments = append(diff.Instruments, &instrument.Instrument{
			ID:         i.ID,
			Changed:    unix(i.Changed),
			Title:      i.Title,
			ShortTitle: i.ShortTitle,
			Symbol:     i.Symbol,
			Rate:       i.Rate.Decimal,
		})
	}
	for _, m := range resp.Merchant {
		diff.Merchants = append(diff.Merchants, &merchant.Merchant{
			ID:      m.ID,
			Changed: unix(m.Changed),
			User:    m.User,
			Title:   m.Title,
		})
	}
	for _, t := range resp.Tag {
		diff.Tags = append(diff.Tags, toTag(t))
	}
	for _, t := range resp.Transaction {
		tx, err := toTransaction(t)
		if err != nil {
			return nil, err
		}
		diff.Transactions = append(diff.Transactions, tx)
	}
	for _, u := range resp.User {
		diff.Users = append(diff.Users, toUser(u))
	}

	return diff, nil
}

func toAccount(a Account) *account.Account {
	syncID := a.SyncID
	if syncID == nil {
		syncID = []string{}
	}
	return &account.Account{
		ID:                    a.ID,
		Changed:               unix(a.Changed),
		User:                  a.User,
		Instrument:            a.Instrument,
		Title:                 a.Title,
		Role:                  a.Role,
		Company:               a.Company,
		Type:                  a.Type,
		SyncID:                syncID,
		Balance:               a.Balance.Decimal,
		StartBalance:          a.StartBalance.Decimal,
		CreditLimit:           a.CreditLimit.Decimal,
		InBalance:             a.InBalance,
		Savings:               a.Savings,
		EnableCorrection:      a.EnableCorrection,
		EnableSMS:             a.EnableSMS,
		Archive:               a.Archive,
		Private:               a.Private,
		Capitalization:        a.Capitalization,
		Percent:               a.Percent.NullDecimal,
		StartDate:             unixPtr(a.StartDate),
		EndDateOffset:         a.EndDateOffset,
		EndDateOffsetInterval: a.EndDateOffsetInterval,
		PayoffStep:            a.PayoffStep,
		PayoffInterval:        a.PayoffInterval,
		BalanceCorrectionType: a.BalanceCorrectionType,
	}
}

func toTag(t Tag) *tag.Tag {
	return &tag.Tag{
		ID:            t.ID,
		Changed:       unix(t.Changed),
		User:          t.User,
		Title:         t.Title,
		Parent:        nullUUID(t.Parent),
		Icon:          t.Icon,
		StaticID:      t.StaticID,
		Picture:       t.Picture,
		Color:         t.Color,
		ShowIncome:    t.ShowIncome,
		ShowOutcome:   t.ShowOutcome,
		BudgetIncome:  t.BudgetIncome,
		BudgetOutcome: t.BudgetOutcome,
		Required:      t.Required,
		Archive:       t.Archive,
	}
}

func toUser(u User) *user.User {
	return &user.User{
		ID:                      u.ID,
		Changed:                 unix(u.Changed),
		Currency:                u.Currency,
		Parent:                  u.Parent,
		Country:                 u.Country,
		CountryCode:             u.CountryCode,
		Email:                   u.Email,
		Login:                   u.Login,
		MonthStartDay:           u.MonthStartDay,
		IsForecastEnabled:       u.IsForecastEnabled,
		PlanBalanceMode:         u.PlanBalanceMode,
		PlanSettings:            u.PlanSettings,
		PaidTill:                unix(u.PaidTill),
		Subscription:            u.Subscription,
		SubscriptionRenewalDate: u.SubscriptionRenewalDate,
	}
}

// toTransaction fills a missing outcome account with the income account:
// a one-legged record books both legs on the same account.
func toTransaction(t Transaction) (*transaction.Transaction, error) {
	date, err := time.Parse(transaction.DateLayout, t.Date)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: invalid date %q: %w", t.ID, t.Date, err)
	}

	outcomeAccount := t.IncomeAccount
	if t.OutcomeAccount != nil {
		outcomeAccount = *t.OutcomeAccount
	}

	tags := t.Tag
	if tags == nil {
		tags = []uuid.UUID{}
	}

	return &transaction.Transaction{
		ID:                  t.ID,
		User:                t.User,
		Changed:             unix(t.Changed),
		Created:             unix(t.Created),
		Deleted:             t.Deleted,
		Viewed:              t.Viewed,
		Hold:                t.Hold,
		QRCode:              t.QRCode,
		Source:              t.Source,
		IncomeBank:          t.IncomeBank,
		IncomeInstrument:    t.IncomeInstrument,
		IncomeAccount:       t.IncomeAccount,
		Income:              t.Income.Decimal,
		OutcomeBank:         t.OutcomeBank,
		OutcomeInstrument:   t.OutcomeInstrument,
		OutcomeAccount:      outcomeAccount,
		Outcome:             t.Outcome.Decimal,
		OpIncome:            t.OpIncome.NullDecimal,
		OpIncomeInstrument:  t.OpIncomeInstrument,
		OpOutcome:           t.OpOutcome.NullDecimal,
		OpOutcomeInstrument: t.OpOutcomeInstrument,
		Merchant:            nullUUID(t.Merchant),
		Payee:               t.Payee,
		OriginalPayee:       t.OriginalPayee,
		Comment:             t.Comment,
		Date:                date,
		MCC:                 t.MCC,
		ReminderMarker:      nullUUID(t.ReminderMarker),
		Latitude:            t.Latitude,
		Longitude:           t.Longitude,
		Tags:                tags,
	}, nil
}

func fromTransaction(t *transaction.Transaction) Transaction {
	outcomeAccount := t.OutcomeAccount
	tags := t.Tags
	if tags == nil {
		tags = []uuid.UUID{}
	}

	return Transaction{
		ID:                  t.ID,
		Changed:             t.Changed.Unix(),
		Created:             t.Created.Unix(),
		User:                t.User,
		Deleted:             t.Deleted,
		Hold:                t.Hold,
		Viewed:              t.Viewed,
		QRCode:              t.QRCode,
		IncomeBank:          t.IncomeBank,
		IncomeInstrument:    t.IncomeInstrument,
		IncomeAccount:       t.IncomeAccount,
		Income:              Number{t.Income},
		OutcomeBank:         t.OutcomeBank,
		OutcomeInstrument:   t.OutcomeInstrument,
		OutcomeAccount:      &outcomeAccount,
		Outcome:             Number{t.Outcome},
		Merchant:            uuidPtr(t.Merchant),
		Payee:               t.Payee,
		OriginalPayee:       t.OriginalPayee,
		Comment:             t.Comment,
		Date:                t.Date.Format(transaction.DateLayout),
		MCC:                 t.MCC,
		ReminderMarker:      uuidPtr(t.ReminderMarker),
		OpIncome:            NullNumber{t.OpIncome},
		OpIncomeInstrument:  t.OpIncomeInstrument,
		OpOutcome:           NullNumber{t.OpOutcome},
		OpOutcomeInstrument: t.OpOutcomeInstrument,
		Latitude:            t.Latitude,
		Longitude:           t.Longitude,
		Source:              t.Source,
		Tag:                 tags,
	}
}
