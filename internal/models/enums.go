package models

import (
	"time"
	_ "time/tzdata"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is a ledger currency.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyRMB Currency = "RMB"
	CurrencyEUR Currency = "EUR"
)

// Currencies lists every supported currency.
var Currencies = []Currency{CurrencyUSD, CurrencyRMB, CurrencyEUR}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyRMB, CurrencyEUR:
		return true
	}
	return false
}

// Symbol returns the display symbol.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyUSD:
		return "$"
	case CurrencyRMB:
		return "¥"
	case CurrencyEUR:
		return "€"
	}
	return string(c)
}

// ISOCode returns the ISO 4217 code. RMB is traded as CNY.
func (c Currency) ISOCode() string {
	if c == CurrencyRMB {
		return "CNY"
	}
	return string(c)
}

// Format renders amount with the currency's ISO formatting rules.
func (c Currency) Format(amount decimal.Decimal) string {
	return money.New(amount.Shift(2).Round(0).IntPart(), c.ISOCode()).Display()
}

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity:
		return true
	}
	return false
}

// IsDebitNormal is true for accounts where a positive amount is an increase
// on the debit side. Only assets are debit-normal.
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset
}

// Signed normalizes amount to the "funds consumed" sign used for balancing:
// debit-normal accounts count positive, credit-normal accounts negative.
func (t AccountType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t.IsDebitNormal() {
		return amount
	}
	return amount.Neg()
}

// DisplayName returns a human-readable label.
func (t AccountType) DisplayName() string {
	switch t {
	case AccountTypeAsset:
		return "Assets"
	case AccountTypeLiability:
		return "Liabilities"
	case AccountTypeEquity:
		return "Equity"
	}
	return string(t)
}

// Timezone tags the zone a transaction originally occurred in.
type Timezone string

const (
	TimezoneUS Timezone = "US"
	TimezoneCN Timezone = "CN"
)

// Valid reports whether tz is a known timezone tag.
func (tz Timezone) Valid() bool {
	return tz == TimezoneUS || tz == TimezoneCN
}

// TZName returns the IANA name of the zone.
func (tz Timezone) TZName() string {
	switch tz {
	case TimezoneCN:
		return "Asia/Shanghai"
	default:
		return "America/Los_Angeles"
	}
}

// Location loads the zone. Zone data is embedded, so this cannot fail for known tags.
func (tz Timezone) Location() *time.Location {
	loc, err := time.LoadLocation(tz.TZName())
	if err != nil {
		return time.UTC
	}
	return loc
}
