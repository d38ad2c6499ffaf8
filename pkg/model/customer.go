package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerType string

const (
	CustomerIndividual CustomerType = "individual"
	CustomerBusiness   CustomerType = "business"
)

type CustomerStatus string

const (
	CustomerActive    CustomerStatus = "active"
	CustomerBlocked   CustomerStatus = "blocked"
	CustomerCancelled CustomerStatus = "cancelled"
)

// Address is the customer's service address, stored as a jsonb column.
// Latitude/Longitude are optional; nearest-cabinet search is unavailable
// until they are filled in.
type Address struct {
	Street       string   `json:"street"`
	Number       string   `json:"number"`
	Complement   string   `json:"complement,omitempty"`
	Neighborhood string   `json:"neighborhood"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan Address: %v", value)
	}
	return json.Unmarshal(bytes, a)
}

func (a Address) GormDataType() string {
	return "jsonb"
}

func (a Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

type Customer struct {
	ID                  uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID            uuid.UUID    `gorm:"type:uuid;not null;index"`
	Type                CustomerType `gorm:"type:varchar(50);default:'individual'"`
	Name                string       `gorm:"not null"`
	TradeName           string
	Document            string `gorm:"not null"` // CPF or CNPJ
	StateRegistration   string
	Email               string
	Phone               string
	BirthDate           *time.Time
	ResponsibleName     string
	ResponsibleDocument string
	Status              CustomerStatus `gorm:"type:varchar(50);default:'active';index"`
	PlanID              *uuid.UUID     `gorm:"type:uuid"`
	Plan                *Plan          `gorm:"foreignKey:PlanID"`
	Address             Address        `gorm:"type:jsonb;default:'{}'"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}
