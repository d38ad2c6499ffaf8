package network

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fibertrack/fibertrack/pkg/model"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs the test suite
// and mirrors the conditional-update semantics of the Postgres store: a
// reservation succeeds only while used_ports < total_ports, and the
// counter and the assignment record change together.
type MemoryStore struct {
	mu          sync.Mutex
	cabinets    map[uuid.UUID]*model.Cabinet
	assignments map[uuid.UUID][]model.CabinetAssignment // keyed by cabinet ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cabinets:    make(map[uuid.UUID]*model.Cabinet),
		assignments: make(map[uuid.UUID][]model.CabinetAssignment),
	}
}

// AddCabinet registers a cabinet. Intended for seeding.
func (m *MemoryStore) AddCabinet(cabinet model.Cabinet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cabinet.ID == uuid.Nil {
		cabinet.ID = uuid.New()
	}
	copied := cabinet
	m.cabinets[cabinet.ID] = &copied
}

func (m *MemoryStore) ListCabinets(ctx context.Context, tenantID uuid.UUID) ([]model.Cabinet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Cabinet
	for _, cabinet := range m.cabinets {
		if cabinet.TenantID == tenantID {
			out = append(out, *cabinet)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *MemoryStore) GetCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID) (*model.Cabinet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(tenantID, cabinetID)
}

func (m *MemoryStore) getLocked(tenantID, cabinetID uuid.UUID) (*model.Cabinet, error) {
	cabinet, ok := m.cabinets[cabinetID]
	if !ok {
		return nil, ErrCabinetNotFound
	}
	if cabinet.TenantID != tenantID {
		return nil, ErrTenantMismatch
	}
	copied := *cabinet
	return &copied, nil
}

func (m *MemoryStore) ReservePort(ctx context.Context, tenantID, cabinetID, customerID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cabinet, ok := m.cabinets[cabinetID]
	if !ok {
		return 0, ErrCabinetNotFound
	}
	if cabinet.TenantID != tenantID {
		return 0, ErrTenantMismatch
	}
	if cabinet.UsedPorts >= cabinet.TotalPorts {
		return 0, ErrCapacityExceeded
	}

	taken := make(map[int]bool, len(m.assignments[cabinetID]))
	for _, a := range m.assignments[cabinetID] {
		taken[a.PortNumber] = true
	}

	port := 0
	for n := 1; n <= cabinet.TotalPorts; n++ {
		if !taken[n] {
			port = n
			break
		}
	}
	if port == 0 {
		return 0, ErrCapacityExceeded
	}

	cabinet.UsedPorts++
	m.assignments[cabinetID] = append(m.assignments[cabinetID], model.CabinetAssignment{
		ID:         uuid.New(),
		TenantID:   tenantID,
		CabinetID:  cabinetID,
		PortNumber: port,
		CustomerID: customerID,
	})

	return port, nil
}

func (m *MemoryStore) ReleasePort(ctx context.Context, tenantID, cabinetID uuid.UUID, portNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cabinet, ok := m.cabinets[cabinetID]
	if !ok {
		return ErrCabinetNotFound
	}
	if cabinet.TenantID != tenantID {
		return ErrTenantMismatch
	}

	list := m.assignments[cabinetID]
	for i, a := range list {
		if a.PortNumber == portNumber {
			m.assignments[cabinetID] = append(list[:i], list[i+1:]...)
			if cabinet.UsedPorts > 0 {
				cabinet.UsedPorts--
			}
			return nil
		}
	}

	return ErrInvalidPort
}

func (m *MemoryStore) ResizeCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID, newTotal int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cabinet, ok := m.cabinets[cabinetID]
	if !ok {
		return ErrCabinetNotFound
	}
	if cabinet.TenantID != tenantID {
		return ErrTenantMismatch
	}
	if newTotal < cabinet.UsedPorts {
		return ErrCapacityBelowUsage
	}
	// A shrink must not strand an assignment on a port number above the
	// new total; the grid only renders ports 1..total_ports.
	for _, a := range m.assignments[cabinetID] {
		if a.PortNumber > newTotal {
			return ErrCapacityBelowUsage
		}
	}

	cabinet.TotalPorts = newTotal
	return nil
}

func (m *MemoryStore) AssignmentForCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*model.CabinetAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, list := range m.assignments {
		for _, a := range list {
			if a.TenantID == tenantID && a.CustomerID == customerID {
				copied := a
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (m *MemoryStore) CabinetAssignments(ctx context.Context, tenantID, cabinetID uuid.UUID) ([]model.CabinetAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.getLocked(tenantID, cabinetID); err != nil {
		return nil, err
	}

	out := append([]model.CabinetAssignment(nil), m.assignments[cabinetID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].PortNumber < out[j].PortNumber })
	return out, nil
}

// UsedPortsTotal sums used_ports across the tenant's cabinets.
func (m *MemoryStore) UsedPortsTotal(tenantID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, cabinet := range m.cabinets {
		if cabinet.TenantID == tenantID {
			total += cabinet.UsedPorts
		}
	}
	return total
}

// AssignmentCount counts active assignments for the tenant.
func (m *MemoryStore) AssignmentCount(tenantID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, list := range m.assignments {
		for _, a := range list {
			if a.TenantID == tenantID {
				total++
			}
		}
	}
	return total
}
