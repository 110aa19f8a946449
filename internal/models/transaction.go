package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a named, timestamped group of entries representing one
// real-world event. Amount and Currency summarize its largest leg.
type Transaction struct {
	Base
	UserID              string              `gorm:"type:uuid;not null;index" json:"user_id"`
	Name                string              `gorm:"size:128;not null" json:"name"`
	CategoryID          string              `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount              decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency            Currency            `gorm:"size:3;not null" json:"currency"`
	ExchangeRateAssumed decimal.NullDecimal `gorm:"type:decimal(12,4)" json:"exchange_rate_assumed"`
	OccurredUTC         time.Time           `gorm:"column:occurred_utc;not null;index" json:"occurred_utc"`
	OccurredTZ          Timezone            `gorm:"column:occurred_tz;size:2;not null" json:"occurred_tz"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Entries  []Entry   `gorm:"foreignKey:TransactionID" json:"entries,omitempty"`
}

// Occurred returns the occurrence time in the zone it happened in.
func (t *Transaction) Occurred() time.Time {
	return t.OccurredUTC.In(t.OccurredTZ.Location())
}

func (t *Transaction) String() string {
	return fmt.Sprintf("<Transaction %q %s %s>",
		t.Name, t.Currency.Format(t.Amount), t.Occurred().Format("2006-01-02T15:04"))
}
