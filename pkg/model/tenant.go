package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantPlanType string

const (
	TenantPlanBasic        TenantPlanType = "basic"
	TenantPlanProfessional TenantPlanType = "professional"
	TenantPlanEnterprise   TenantPlanType = "enterprise"
)

// Tenant is one ISP on the platform. Every domain record is owned by
// exactly one tenant; nothing in the system is visible across tenants.
type Tenant struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name         string    `gorm:"uniqueIndex;not null"`
	LegalName    string
	Document     string `gorm:"uniqueIndex"` // CNPJ
	ContactEmail string
	ContactPhone string
	PlanType     TenantPlanType `gorm:"type:varchar(50);default:'basic'"`
	MaxCustomers int            `gorm:"default:0"`
	Active       bool           `gorm:"default:true"`
	Users        []User         `gorm:"foreignKey:TenantID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email"`
	Tenant       *Tenant   `gorm:"foreignKey:TenantID"`
	Email        string    `gorm:"not null;uniqueIndex:idx_users_tenant_email"`
	Name         string
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(50);default:'operator'"`
	Active       bool     `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}
