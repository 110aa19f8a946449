package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Entry is a single signed ledger line against one account. Entries are
// never deleted: merged entries become inactive and point at the successor
// that carries their value forward.
type Entry struct {
	Base
	AccountID     string          `gorm:"type:uuid;not null;index" json:"account_id"`
	Active        bool            `gorm:"not null;index" json:"active"`
	Pending       bool            `gorm:"not null" json:"pending"`
	SuccessorID   *string         `gorm:"type:uuid;index" json:"successor_id,omitempty"`
	TransactionID *string         `gorm:"type:uuid;index" json:"transaction_id,omitempty"`
	Name          string          `gorm:"size:32;not null" json:"name"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency      Currency        `gorm:"size:3;not null" json:"currency"`

	// Relationships
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// Superseded reports whether the entry's value has moved to a successor.
func (e *Entry) Superseded() bool {
	return e.SuccessorID != nil
}

func (e *Entry) String() string {
	return fmt.Sprintf("<Entry %q %s>", e.Name, e.Currency.Format(e.Amount))
}
