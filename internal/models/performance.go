package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Performance is one day's performance of an external portfolio as reported
// by its data source.
type Performance struct {
	Value        decimal.Decimal
	Gain         decimal.Decimal
	Rate         decimal.Decimal
	StartValue   decimal.Decimal
	NetCashFlow  decimal.Decimal
	CapitalGain  decimal.Decimal
	DividendGain decimal.Decimal
	StartDate    time.Time
}

// Empty reports whether the portfolio held nothing over the period.
func (p *Performance) Empty() bool {
	return p.StartValue.IsZero() && p.Value.IsZero()
}
