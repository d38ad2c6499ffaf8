package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/fibertrack/fibertrack/pkg/geo"
)

// Cabinet is a CTO (Caixa Terminal Óptica): a fiber distribution box
// terminating a fixed number of subscriber drop ports.
//
// UsedPorts is mutated only through the network service's reserve and
// release operations and always satisfies 0 <= UsedPorts <= TotalPorts.
type Cabinet struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"not null"`
	Address    string
	Latitude   float64        `gorm:"not null"`
	Longitude  float64        `gorm:"not null"`
	TotalPorts int            `gorm:"not null"`
	UsedPorts  int            `gorm:"not null;default:0"`
	GroupID    *uuid.UUID     `gorm:"type:uuid"`
	Group      *CabinetGroup  `gorm:"foreignKey:GroupID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Cabinet) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: c.Latitude, Longitude: c.Longitude}
}

func (c *Cabinet) FreePorts() int {
	return c.TotalPorts - c.UsedPorts
}

// CabinetGroup classifies cabinets for the map legend. It carries no
// capacity semantics; deleting a group leaves its cabinets ungrouped.
type CabinetGroup struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"not null"`
	Description string
	Color       string `gorm:"type:varchar(20)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CabinetAssignment links a customer to one numbered port on one cabinet.
// The (cabinet_id, port_number) pair is unique so a port can never be
// double-booked even under concurrent reservation attempts.
type CabinetAssignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CabinetID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignments_cabinet_port"`
	PortNumber int       `gorm:"not null;uniqueIndex:idx_assignments_cabinet_port"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt  time.Time
}

type PortState string

const (
	PortFree PortState = "free"
	PortUsed PortState = "used"
)

// PortStatus is one cell of the port grid rendered on cabinet detail views.
type PortStatus struct {
	PortNumber int        `json:"port_number"`
	Status     PortState  `json:"status"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
}

// MapLocation remembers the operator's last network map viewport.
type MapLocation struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Latitude  float64   `gorm:"not null"`
	Longitude float64   `gorm:"not null"`
	Zoom      int       `gorm:"default:13"`
	CreatedAt time.Time
}
