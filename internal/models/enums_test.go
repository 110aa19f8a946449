package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCurrencyFormat(t *testing.T) {
	tests := []struct {
		currency Currency
		amount   string
		want     string
	}{
		{CurrencyUSD, "13.65", "$13.65"},
		{CurrencyUSD, "-5", "-$5.00"},
		{CurrencyUSD, "1234.5", "$1,234.50"},
	}
	for _, tt := range tests {
		got := tt.currency.Format(decimal.RequireFromString(tt.amount))
		if got != tt.want {
			t.Errorf("%s.Format(%s) = %q, want %q", tt.currency, tt.amount, got, tt.want)
		}
	}
}

func TestCurrencyISOCode(t *testing.T) {
	if got := CurrencyRMB.ISOCode(); got != "CNY" {
		t.Errorf("expected CNY, got %s", got)
	}
	if got := CurrencyEUR.ISOCode(); got != "EUR" {
		t.Errorf("expected EUR, got %s", got)
	}
	if Currency("GBP").Valid() {
		t.Error("GBP is not a ledger currency")
	}
}

func TestAccountTypeSigned(t *testing.T) {
	amount := decimal.RequireFromString("10.50")

	if !AccountTypeAsset.Signed(amount).Equal(amount) {
		t.Error("asset amounts keep their sign")
	}
	for _, typ := range []AccountType{AccountTypeLiability, AccountTypeEquity} {
		if typ.IsDebitNormal() {
			t.Errorf("%s should be credit-normal", typ)
		}
		if !typ.Signed(amount).Equal(amount.Neg()) {
			t.Errorf("%s amounts should be negated", typ)
		}
	}
}

func TestTimezoneLocation(t *testing.T) {
	utc := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

	cn := utc.In(TimezoneCN.Location())
	if cn.Day() != 2 || cn.Hour() != 4 {
		t.Errorf("expected 2024-01-02 04:00 in Shanghai, got %v", cn)
	}
	us := utc.In(TimezoneUS.Location())
	if us.Hour() != 12 {
		t.Errorf("expected 12:00 in Los Angeles, got %v", us)
	}
}

func TestTransactionOccurred(t *testing.T) {
	txn := &Transaction{
		OccurredUTC: time.Date(2024, 6, 1, 1, 30, 0, 0, time.UTC),
		OccurredTZ:  TimezoneUS,
	}
	got := txn.Occurred()
	if got.Day() != 31 || got.Month() != time.May || got.Hour() != 18 {
		t.Errorf("expected 2024-05-31 18:30 PDT, got %v", got)
	}
	if !got.Equal(txn.OccurredUTC) {
		t.Error("Occurred must be the same instant")
	}
}

func TestBalancesString(t *testing.T) {
	b := Balances{
		CurrencyUSD: decimal.RequireFromString("10"),
		CurrencyEUR: decimal.Zero,
	}
	if got := b.String(); got != "$10.00" {
		t.Errorf("expected zero balances to be omitted, got %q", got)
	}
	if !b.Get(CurrencyRMB).IsZero() {
		t.Error("missing currency should read as zero")
	}
}
