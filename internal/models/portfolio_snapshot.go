package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PortfolioSnapshot is one day's recorded performance of an external
// portfolio. Snapshots of the same name chain through StartValue, which
// must equal the previous day's Value. Never deleted.
type PortfolioSnapshot struct {
	ID           string              `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string              `gorm:"size:64;not null;uniqueIndex:idx_portfolio_snapshots_name_date" json:"name"`
	Date         time.Time           `gorm:"type:date;not null;uniqueIndex:idx_portfolio_snapshots_name_date" json:"date"`
	Value        decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"value"`
	Gain         decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"gain"`
	Rate         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"rate"`
	StartValue   decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"start_value"`
	NetCashFlow  decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"net_cash_flow"`
	CapitalGain  decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"capital_gain"`
	DividendGain decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"dividend_gain"`
	CostBasis    decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"cost_basis"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *PortfolioSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

func (p *PortfolioSnapshot) String() string {
	return fmt.Sprintf("[%s] %s | %s/%s%%", p.Date.Format(time.DateOnly),
		p.Value.StringFixed(2), p.Gain.StringFixed(2), p.Rate.StringFixed(2))
}

// DateOf truncates t to its calendar date, expressed as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	snapshotTolerance = decimal.RequireFromString("0.01")
	startValueDrift   = decimal.RequireFromString("0.002")
	hundred           = decimal.NewFromInt(100)
)

// ExpectedCapitalGain is value - start_value - net_cash_flow.
func (p *PortfolioSnapshot) ExpectedCapitalGain() decimal.Decimal {
	return p.Value.Sub(p.StartValue).Sub(p.NetCashFlow).Round(2)
}

// ExpectedGain is capital_gain + dividend_gain.
func (p *PortfolioSnapshot) ExpectedGain() decimal.Decimal {
	return p.CapitalGain.Add(p.DividendGain).Round(2)
}

// ExpectedRate is the gain as a percentage of the invested amount. A
// snapshot with nothing invested has a zero rate.
func (p *PortfolioSnapshot) ExpectedRate() decimal.Decimal {
	invested := p.StartValue.Add(p.NetCashFlow)
	if invested.IsZero() {
		return decimal.Zero
	}
	return p.Gain.Div(invested).Mul(hundred).Round(2)
}

// SnapshotCheckError describes which stored field disagrees with its derivation.
type SnapshotCheckError struct {
	Field    string
	Stored   decimal.Decimal
	Expected decimal.Decimal
}

// Continuity reports whether the mismatch breaks the chain to the previous day.
func (e *SnapshotCheckError) Continuity() bool { return e.Field == "start_value" }

func (e *SnapshotCheckError) Error() string {
	return fmt.Sprintf("%s not matched %s, expected %s", e.Field, e.Stored.StringFixed(2), e.Expected.StringFixed(2))
}

// Check verifies the derived fields against the stored ones, and start_value
// against previous.Value when previous is given. It returns the first
// mismatch, nil when consistent.
func (p *PortfolioSnapshot) Check(previous *PortfolioSnapshot) *SnapshotCheckError {
	if previous != nil && !p.StartValue.Equal(previous.Value) {
		return &SnapshotCheckError{Field: "start_value", Stored: p.StartValue, Expected: previous.Value}
	}
	for _, c := range []struct {
		field    string
		stored   decimal.Decimal
		expected func() decimal.Decimal
	}{
		{"capital_gain", p.CapitalGain, p.ExpectedCapitalGain},
		{"gain", p.Gain, p.ExpectedGain},
		{"rate", p.Rate, p.ExpectedRate},
	} {
		expected := c.expected()
		if c.stored.Sub(expected).Abs().GreaterThan(snapshotTolerance) {
			return &SnapshotCheckError{Field: c.field, Stored: c.stored, Expected: expected}
		}
	}
	return nil
}

// SnapshotCorrection records one field overwritten by Repair.
type SnapshotCorrection struct {
	Field string          `json:"field"`
	From  decimal.Decimal `json:"from"`
	To    decimal.Decimal `json:"to"`
}

// ErrStartValueDrift is returned by Repair when start_value is too far from
// the previous value to be treated as rounding drift.
type ErrStartValueDrift struct {
	StartValue decimal.Decimal
	Previous   decimal.Decimal
}

func (e *ErrStartValueDrift) Error() string {
	return fmt.Sprintf("start value %s drifted too far from previous value %s",
		e.StartValue.StringFixed(2), e.Previous.StringFixed(2))
}

// Repair overwrites every field that fails its derivation and returns the
// corrections made. A start_value within 0.2% of previous.Value is snapped
// to it, carrying the difference into capital_gain and gain. Repair is
// idempotent: a second call returns no corrections.
func (p *PortfolioSnapshot) Repair(previous *PortfolioSnapshot) ([]SnapshotCorrection, error) {
	var corrections []SnapshotCorrection
	set := func(field string, dst *decimal.Decimal, to decimal.Decimal) {
		if dst.Equal(to) {
			return
		}
		corrections = append(corrections, SnapshotCorrection{Field: field, From: *dst, To: to})
		*dst = to
	}

	if previous != nil && !p.StartValue.Equal(previous.Value) {
		if previous.Value.IsZero() {
			return nil, &ErrStartValueDrift{StartValue: p.StartValue, Previous: previous.Value}
		}
		diff := p.StartValue.Sub(previous.Value).Round(2)
		if diff.Abs().Div(previous.Value.Abs()).Round(4).GreaterThan(startValueDrift) {
			return nil, &ErrStartValueDrift{StartValue: p.StartValue, Previous: previous.Value}
		}
		set("start_value", &p.StartValue, previous.Value)
		set("capital_gain", &p.CapitalGain, p.CapitalGain.Add(diff).Round(2))
		set("gain", &p.Gain, p.Gain.Add(diff).Round(2))
	}

	set("capital_gain", &p.CapitalGain, p.ExpectedCapitalGain())
	set("gain", &p.Gain, p.ExpectedGain())
	set("rate", &p.Rate, p.ExpectedRate())
	return corrections, nil
}
