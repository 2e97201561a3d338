package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionProcess AuditAction = "process"
	AuditActionLogin   AuditAction = "login"
)

// AuditLog lives in the local relational store. The sheet-backed activity log
// is the operational record; these rows are the fallback kept close to the
// user accounts.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserName string `gorm:"size:100" json:"user_name"`

	// Entity: "print_run", "request", "user"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:60;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Operation payload (JSON), "null" when absent
	Details string `gorm:"type:jsonb" json:"details"`
}
