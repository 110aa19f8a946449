package models

// User owns accounts, categories and transactions. Every user has a default
// equity account that absorbs transaction imbalances.
type User struct {
	Base
	Name                   string  `gorm:"size:32;uniqueIndex;not null" json:"name"`
	DefaultEquityAccountID *string `gorm:"type:uuid" json:"default_equity_account_id,omitempty"`
}
