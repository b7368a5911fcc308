package postgres

import (
	"context"
	"fmt"

	"finmirror/internal/domain/user"
	"finmirror/internal/shared/apperrors"
)

var userTable = upsertTable{
	name: "users",
	columns: []string{
		"id", "changed", "currency", "parent", "country", "country_code", "email", "login",
		"month_start_day", "is_forecast_enabled", "plan_balance_mode", "plan_settings",
		"paid_till", "subscription", "subscription_renewal_date",
	},
}

const userSelect = `SELECT id, changed, currency, parent, country, country_code, email, login,
	month_start_day, is_forecast_enabled, plan_balance_mode, plan_settings,
	paid_till, subscription, subscription_renewal_date FROM users`

type UserRepository struct {
	db    *DB
	scope *Scope
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db, scope: NewScope(db)}
}

func scanUser(s rowScanner) (*user.User, error) {
	var u user.User
	err := s.Scan(
		&u.ID, &u.Changed, &u.Currency, &u.Parent, &u.Country, &u.CountryCode, &u.Email, &u.Login,
		&u.MonthStartDay, &u.IsForecastEnabled, &u.PlanBalanceMode, &u.PlanSettings,
		&u.PaidTill, &u.Subscription, &u.SubscriptionRenewalDate,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetSingle returns the one mirrored user. Zero or several users means the
// mirror was never synced or was fed from more than one account.
func (r *UserRepository) GetSingle(ctx context.Context) (*user.User, error) {
	users, err := queryAll(ctx, r.db, "users", scanUser, userSelect+` ORDER BY id ASC LIMIT 2`)
	if err != nil {
		return nil, err
	}

	switch len(users) {
	case 1:
		return users[0], nil
	case 0:
		return nil, apperrors.InvariantViolation("no users")
	default:
		var total int
		if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		return nil, apperrors.InvariantViolation("expected exactly 1, found %d", total)
	}
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}
	return queryAll(ctx, r.db, "users", scanUser, userSelect+` WHERE id = ANY($1)`, int64Array(ids))
}

func (r *UserRepository) Upsert(ctx context.Context, users []*user.User) error {
	return bulkUpsert(ctx, r.scope, userTable, users,
		func(u *user.User) int64 { return u.ID },
		func(u *user.User) []any {
			return []any{
				u.ID, u.Changed, u.Currency, u.Parent, u.Country, u.CountryCode, u.Email, u.Login,
				u.MonthStartDay, u.IsForecastEnabled, u.PlanBalanceMode, u.PlanSettings,
				u.PaidTill, u.Subscription, u.SubscriptionRenewalDate,
			}
		},
	)
}
