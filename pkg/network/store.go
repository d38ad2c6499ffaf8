package network

import (
	"context"

	"github.com/google/uuid"

	"github.com/fibertrack/fibertrack/pkg/model"
)

// Store is the persistence contract of the network core. Implementations
// must scope every operation to the given tenant and keep port mutations
// atomic per cabinet: ReservePort and ReleasePort on the same cabinet are
// serialized relative to each other, either by a conditional update with a
// rows-affected check or by an equivalent compare-and-swap.
type Store interface {
	// ListCabinets returns all cabinets of the tenant.
	ListCabinets(ctx context.Context, tenantID uuid.UUID) ([]model.Cabinet, error)

	// GetCabinet returns the cabinet, ErrCabinetNotFound if it does not
	// exist, or ErrTenantMismatch if it belongs to another tenant.
	GetCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID) (*model.Cabinet, error)

	// ReservePort atomically takes the lowest-numbered free port on the
	// cabinet for the customer, incrementing used_ports and recording the
	// assignment as one unit. Returns ErrCapacityExceeded when the cabinet
	// is full.
	ReservePort(ctx context.Context, tenantID, cabinetID, customerID uuid.UUID) (int, error)

	// ReleasePort frees the given port, removing its assignment and
	// decrementing used_ports as one unit. Returns ErrInvalidPort if the
	// port is not currently reserved. Never drives used_ports below zero.
	ReleasePort(ctx context.Context, tenantID, cabinetID uuid.UUID, portNumber int) error

	// ResizeCabinet sets total_ports, rejecting with ErrCapacityBelowUsage
	// when newTotal is under the current usage or under the highest
	// reserved port number.
	ResizeCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID, newTotal int) error

	// AssignmentForCustomer returns the customer's active assignment, or
	// (nil, nil) when the customer is unassigned.
	AssignmentForCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*model.CabinetAssignment, error)

	// CabinetAssignments returns the cabinet's assignments ordered by port
	// number ascending.
	CabinetAssignments(ctx context.Context, tenantID, cabinetID uuid.UUID) ([]model.CabinetAssignment, error)
}
