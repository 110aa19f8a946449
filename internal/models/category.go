package models

// Category represents a transaction category
type Category struct {
	Base
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_categories_user_name" json:"user_id"`
	Name   string `gorm:"size:32;not null;uniqueIndex:idx_categories_user_name" json:"name"`
}
