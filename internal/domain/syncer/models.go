package syncer

import (
	"github.com/google/uuid"

	"finmirror/internal/domain/account"
	"finmirror/internal/domain/company"
	"finmirror/internal/domain/country"
	"finmirror/internal/domain/instrument"
	"finmirror/internal/domain/merchant"
	"finmirror/internal/domain/tag"
	"finmirror/internal/domain/transaction"
	"finmirror/internal/domain/user"
)

// Diff is one changelog page from the remote: the new cursor plus every
// entity changed since the cursor the request carried.
type Diff struct {
	ServerTimestamp int64                      `json:"serverTimestamp"`
	Accounts        []*account.Account         `json:"account,omitempty"`
	Companies       []*company.Company         `json:"company,omitempty"`
	Countries       []*country.Country         `json:"country,omitempty"`
	Instruments     []*instrument.Instrument   `json:"instrument,omitempty"`
	Merchants       []*merchant.Merchant       `json:"merchant,omitempty"`
	Tags            []*tag.Tag                 `json:"tag,omitempty"`
	Transactions    []*transaction.Transaction `json:"transaction,omitempty"`
	Users           []*user.User               `json:"user,omitempty"`
}

// Transaction returns the transaction with the given id, if the diff has it.
func (d *Diff) Transaction(id uuid.UUID) (*transaction.Transaction, bool) {
	if d == nil {
		return nil, false
	}
	for _, tx := range d.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return nil, false
}

// Counts returns the number of changed entities per kind, skipping empty kinds.
func (d *Diff) Counts() map[string]int {
	counts := map[string]int{}
	add := func(kind string, n int) {
		if n > 0 {
			counts[kind] = n
		}
	}
	add("accounts", len(d.Accounts))
	add("companies", len(d.Companies))
	add("countries", len(d.Countries))
	add("instruments", len(d.Instruments))
	add("merchants", len(d.Merchants))
	add("tags", len(d.Tags))
	add("transactions", len(d.Transactions))
	add("users", len(d.Users))
	return counts
}
