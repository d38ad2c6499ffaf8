package network

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/eventbus"
	"github.com/fibertrack/fibertrack/pkg/geo"
	"github.com/fibertrack/fibertrack/pkg/metrics"
	"github.com/fibertrack/fibertrack/pkg/model"
)

// Service implements the nearest-eligible cabinet search and the
// customer-to-port association on top of a Store. The bus is optional;
// when present, assignment changes are published for live map views.
type Service struct {
	store  Store
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewService(store Store, bus *eventbus.Bus, logger *zap.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// Assignment is the outcome of a successful customer assignment.
type Assignment struct {
	Cabinet    model.Cabinet
	PortNumber int
	Distance   float64
}

// HasFreeCapacity reports whether the cabinet can take one more customer.
func HasFreeCapacity(c *model.Cabinet) bool {
	return c.UsedPorts < c.TotalPorts
}

// FindNearestAvailable returns the nearest cabinet with at least one free
// port. It is read-only: no port is reserved by searching. Returns
// ErrNoEligibleCabinet when the tenant has no cabinet with room.
func (s *Service) FindNearestAvailable(ctx context.Context, tenantID uuid.UUID, coord geo.Coordinate) (*Candidate, error) {
	start := time.Now()
	defer func() {
		metrics.NearestSearchDuration.WithLabelValues(tenantID.String()).Observe(time.Since(start).Seconds())
	}()

	candidates, err := s.NearestCandidates(ctx, tenantID, coord, 0)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		if HasFreeCapacity(&candidates[i].Cabinet) {
			return &candidates[i], nil
		}
	}

	return nil, ErrNoEligibleCabinet
}

// AssignCustomer reserves a port on the nearest cabinet with room and
// records the customer linkage. The search and the reservation are not
// atomic as a whole: a concurrent request can fill the chosen cabinet
// between the two steps. When that happens the reservation fails with
// ErrCapacityExceeded and the next-nearest candidate is tried, bounded by
// the finite candidate list.
//
// A customer that is already assigned is re-assigned: the new port is
// reserved first, then the old one is released. If the release fails the
// new reservation is rolled back so the prior assignment stays intact.
func (s *Service) AssignCustomer(ctx context.Context, tenantID, customerID uuid.UUID, coord geo.Coordinate) (*Assignment, error) {
	existing, err := s.store.AssignmentForCustomer(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.NearestCandidates(ctx, tenantID, coord, 0)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		cabinet := &candidates[i].Cabinet
		if existing != nil && existing.CabinetID == cabinet.ID {
			// Already holds a port on the nearest cabinet; keep it.
			metrics.AssignmentsTotal.WithLabelValues(tenantID.String(), "unchanged").Inc()
			return &Assignment{Cabinet: *cabinet, PortNumber: existing.PortNumber, Distance: candidates[i].Distance}, nil
		}
		if !HasFreeCapacity(cabinet) {
			continue
		}

		port, err := s.store.ReservePort(ctx, tenantID, cabinet.ID, customerID)
		if errors.Is(err, ErrCapacityExceeded) {
			// Lost the race for the last port; move on.
			metrics.ReservationRetriesTotal.WithLabelValues(tenantID.String()).Inc()
			continue
		}
		if err != nil {
			return nil, err
		}

		if existing != nil {
			if err := s.store.ReleasePort(ctx, tenantID, existing.CabinetID, existing.PortNumber); err != nil {
				if rbErr := s.store.ReleasePort(ctx, tenantID, cabinet.ID, port); rbErr != nil {
					s.logger.Error("failed to roll back reservation after release failure",
						zap.String("cabinet_id", cabinet.ID.String()),
						zap.Int("port", port),
						zap.Error(rbErr))
				}
				return nil, err
			}
			metrics.PortsInUse.WithLabelValues(tenantID.String(), existing.CabinetID.String()).Dec()
		}

		metrics.AssignmentsTotal.WithLabelValues(tenantID.String(), "assigned").Inc()
		metrics.PortsInUse.WithLabelValues(tenantID.String(), cabinet.ID.String()).Inc()
		s.publishAssignment(ctx, "customer_assigned", tenantID, cabinet.ID, customerID, port)

		return &Assignment{Cabinet: *cabinet, PortNumber: port, Distance: candidates[i].Distance}, nil
	}

	metrics.AssignmentsTotal.WithLabelValues(tenantID.String(), "not_found").Inc()
	return nil, ErrNoEligibleCabinet
}

// ReleaseCustomer frees the customer's port and removes the linkage.
// A customer with no active assignment is a no-op, not an error.
func (s *Service) ReleaseCustomer(ctx context.Context, tenantID, customerID uuid.UUID) error {
	assignment, err := s.store.AssignmentForCustomer(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return nil
	}

	if err := s.store.ReleasePort(ctx, tenantID, assignment.CabinetID, assignment.PortNumber); err != nil {
		return err
	}

	metrics.PortReleasesTotal.WithLabelValues(tenantID.String()).Inc()
	metrics.PortsInUse.WithLabelValues(tenantID.String(), assignment.CabinetID.String()).Dec()
	s.publishAssignment(ctx, "customer_released", tenantID, assignment.CabinetID, customerID, assignment.PortNumber)

	return nil
}

// CurrentAssignment reports the customer's cabinet linkage, nil when the
// customer holds no port.
func (s *Service) CurrentAssignment(ctx context.Context, tenantID, customerID uuid.UUID) (*model.CabinetAssignment, error) {
	return s.store.AssignmentForCustomer(ctx, tenantID, customerID)
}

// PortStatuses renders the cabinet's port grid: one entry per port number
// 1..total_ports with the occupying customer where reserved.
func (s *Service) PortStatuses(ctx context.Context, tenantID, cabinetID uuid.UUID) ([]model.PortStatus, error) {
	cabinet, err := s.store.GetCabinet(ctx, tenantID, cabinetID)
	if err != nil {
		s.noteTenantMismatch(err, tenantID, cabinetID)
		return nil, err
	}

	assignments, err := s.store.CabinetAssignments(ctx, tenantID, cabinetID)
	if err != nil {
		return nil, err
	}

	byPort := make(map[int]uuid.UUID, len(assignments))
	for _, a := range assignments {
		byPort[a.PortNumber] = a.CustomerID
	}

	statuses := make([]model.PortStatus, 0, cabinet.TotalPorts)
	for port := 1; port <= cabinet.TotalPorts; port++ {
		status := model.PortStatus{PortNumber: port, Status: model.PortFree}
		if customerID, ok := byPort[port]; ok {
			status.Status = model.PortUsed
			customer := customerID
			status.CustomerID = &customer
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// ResizeCabinet changes a cabinet's total port count, rejecting shrinks
// below current usage.
func (s *Service) ResizeCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID, newTotal int) error {
	err := s.store.ResizeCabinet(ctx, tenantID, cabinetID, newTotal)
	s.noteTenantMismatch(err, tenantID, cabinetID)
	return err
}

func (s *Service) noteTenantMismatch(err error, tenantID, cabinetID uuid.UUID) {
	if !errors.Is(err, ErrTenantMismatch) {
		return
	}
	metrics.TenantMismatchTotal.WithLabelValues(tenantID.String()).Inc()
	s.logger.Warn("cross-tenant cabinet access rejected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("cabinet_id", cabinetID.String()))
}

func (s *Service) publishAssignment(ctx context.Context, eventType string, tenantID, cabinetID, customerID uuid.UUID, port int) {
	if s.bus == nil {
		return
	}
	payload := eventbus.AssignmentEvent{
		TenantID:   tenantID.String(),
		CabinetID:  cabinetID.String(),
		CustomerID: customerID.String(),
		PortNumber: port,
	}
	if event, err := eventbus.NewEvent(eventType, payload); err == nil {
		if err := s.bus.Publish(ctx, eventbus.ChannelAssignment, event); err != nil {
			s.logger.Warn("failed to publish assignment event", zap.Error(err))
		}
	}
}
