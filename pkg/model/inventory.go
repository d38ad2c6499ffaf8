package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Category  string
	Unit      string `gorm:"type:varchar(20);default:'un'"`
	Quantity  int    `gorm:"not null;default:0"`
	MinStock  int    `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type StockTransactionType string

const (
	StockIn  StockTransactionType = "in"
	StockOut StockTransactionType = "out"
)

// StockTransaction is one entry of the stock ledger. Applying a
// transaction adjusts the item quantity; outgoing transactions may
// never drive the quantity below zero.
type StockTransaction struct {
	ID        uuid.UUID            `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	ItemID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	Item      *InventoryItem       `gorm:"foreignKey:ItemID"`
	Type      StockTransactionType `gorm:"type:varchar(10);not null"`
	Quantity  int                  `gorm:"not null"`
	Note      string
	CreatedAt time.Time
}
