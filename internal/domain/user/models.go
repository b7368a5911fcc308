package user

import (
	"time"
)

// User is the single mirrored owner of the ledger.
type User struct {
	ID                      int64     `json:"id"`
	Changed                 time.Time `json:"changed"`
	Currency                int64     `json:"currency"`
	Parent                  *int64    `json:"parent"`
	Country                 *int64    `json:"country"`
	CountryCode             string    `json:"countryCode"`
	Email                   *string   `json:"email,omitempty"`
	Login                   *string   `json:"login,omitempty"`
	MonthStartDay           int       `json:"monthStartDay"`
	IsForecastEnabled       bool      `json:"isForecastEnabled"`
	PlanBalanceMode         string    `json:"planBalanceMode"`
	PlanSettings            string    `json:"planSettings"`
	PaidTill                time.Time `json:"paidTill"`
	Subscription            *string   `json:"subscription"`
	SubscriptionRenewalDate *string   `json:"subscriptionRenewalDate"`
}
