package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one row of the port-activity trail, written by the audit
// recorder from bus events.
type AuditEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Type       string    `gorm:"type:varchar(100);not null"`
	CabinetID  *uuid.UUID `gorm:"type:uuid"`
	CustomerID *uuid.UUID `gorm:"type:uuid"`
	PortNumber int
	CreatedAt  time.Time
}
