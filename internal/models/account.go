package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Account is a named, typed container of entries. Its balance is never
// stored; it is derived from the account's active entries.
type Account struct {
	Base
	UserID string      `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_user_name" json:"user_id"`
	Name   string      `gorm:"size:32;not null;uniqueIndex:idx_accounts_user_name" json:"name"`
	Type   AccountType `gorm:"size:16;not null" json:"type"`
}

// Balances maps a currency to a signed amount.
type Balances map[Currency]decimal.Decimal

// Get returns the balance in currency, zero if absent.
func (b Balances) Get(currency Currency) decimal.Decimal {
	if v, ok := b[currency]; ok {
		return v
	}
	return decimal.Zero
}

// String renders non-zero balances in currency code order, joined with " + ".
// Zero balances are omitted, so {USD: 10, EUR: 0} renders as "$10.00".
func (b Balances) String() string {
	keys := make([]string, 0, len(b))
	for c, v := range b {
		if !v.IsZero() {
			keys = append(keys, string(c))
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		c := Currency(k)
		parts[i] = c.Format(b[c])
	}
	return strings.Join(parts, " + ")
}

// AccountWithBalance pairs an account with its derived balances.
type AccountWithBalance struct {
	Account
	Balances Balances `gorm:"-" json:"balances"`
}

func (a AccountWithBalance) String() string {
	if s := a.Balances.String(); s != "" {
		return fmt.Sprintf("%s (%s) | %s", a.Name, a.Type.DisplayName(), s)
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Type.DisplayName())
}
