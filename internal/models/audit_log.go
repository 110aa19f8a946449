package models

// AuditLog records ledger and snapshot corrections.
type AuditLog struct {
	Base
	UserID       *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action       string  `gorm:"not null" json:"action"`
	ResourceType string  `gorm:"not null" json:"resource_type"`
	ResourceID   string  `gorm:"type:uuid;not null;index" json:"resource_id"`
	Changes      string  `json:"changes,omitempty"`
}
