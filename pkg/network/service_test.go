package network

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibertrack/fibertrack/pkg/geo"
	"github.com/fibertrack/fibertrack/pkg/model"
)

func TestFindNearestAvailableSkipsFullCabinet(t *testing.T) {
	// Scenario: the literally-nearest cabinet is full, so the result is the
	// nearest cabinet with room.
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()

	full := newCabinet(tenant, 0, 0, 4, 4)
	open := newCabinet(tenant, 0, 0.001, 4, 0)
	store.AddCabinet(full)
	store.AddCabinet(open)

	svc := newTestService(store)
	candidate, err := svc.FindNearestAvailable(ctx, tenant, geo.Coordinate{})
	require.NoError(t, err)
	assert.Equal(t, open.ID, candidate.Cabinet.ID)
}

func TestFindNearestAvailableEmptyTenant(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	_, err := svc.FindNearestAvailable(context.Background(), uuid.New(), geo.Coordinate{})
	assert.ErrorIs(t, err, ErrNoEligibleCabinet)
}

func TestFindNearestAvailableDoesNotReserve(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	svc := newTestService(store)
	for i := 0; i < 3; i++ {
		_, err := svc.FindNearestAvailable(ctx, tenant, geo.Coordinate{})
		require.NoError(t, err)
	}

	got, err := store.GetCabinet(ctx, tenant, cabinet.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsedPorts, "search alone must not consume capacity")
}

func TestAssignCustomerReservesAndLinks(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	customer := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	svc := newTestService(store)
	assignment, err := svc.AssignCustomer(ctx, tenant, customer, geo.Coordinate{})
	require.NoError(t, err)
	assert.Equal(t, cabinet.ID, assignment.Cabinet.ID)
	assert.Equal(t, 1, assignment.PortNumber)

	linked, err := store.AssignmentForCustomer(ctx, tenant, customer)
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, cabinet.ID, linked.CabinetID)
	assert.Equal(t, 1, linked.PortNumber)

	// No orphaned reservation, no orphaned linkage.
	assert.Equal(t, store.UsedPortsTotal(tenant), store.AssignmentCount(tenant))
}

func TestAssignCustomerNoCapacityAnywhere(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	store.AddCabinet(newCabinet(tenant, 0, 0, 2, 2))
	store.AddCabinet(newCabinet(tenant, 0, 0.001, 2, 2))

	svc := newTestService(store)
	_, err := svc.AssignCustomer(ctx, tenant, uuid.New(), geo.Coordinate{})
	assert.ErrorIs(t, err, ErrNoEligibleCabinet)
	assert.Zero(t, store.AssignmentCount(tenant))
}

// raceStore makes the first reservation on a chosen cabinet lose: another
// request fills the cabinet between search and reserve.
type raceStore struct {
	*MemoryStore
	target   uuid.UUID
	tripped  bool
	tripLock sync.Mutex
}

func (r *raceStore) ReservePort(ctx context.Context, tenantID, cabinetID, customerID uuid.UUID) (int, error) {
	r.tripLock.Lock()
	if cabinetID == r.target && !r.tripped {
		r.tripped = true
		r.tripLock.Unlock()
		// Concurrent winner takes the last port first.
		if _, err := r.MemoryStore.ReservePort(ctx, tenantID, cabinetID, uuid.New()); err != nil {
			return 0, err
		}
		return 0, ErrCapacityExceeded
	}
	r.tripLock.Unlock()
	return r.MemoryStore.ReservePort(ctx, tenantID, cabinetID, customerID)
}

func TestAssignCustomerRetriesNextCandidateOnRace(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	customer := uuid.New()

	mem := NewMemoryStore()
	nearest := newCabinet(tenant, 0, 0, 1, 0)
	fallback := newCabinet(tenant, 0, 0.001, 4, 0)
	mem.AddCabinet(nearest)
	mem.AddCabinet(fallback)

	store := &raceStore{MemoryStore: mem, target: nearest.ID}
	svc := newTestService(store)

	assignment, err := svc.AssignCustomer(ctx, tenant, customer, geo.Coordinate{})
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, assignment.Cabinet.ID, "lost race must fall through to the next candidate")
	assert.Equal(t, mem.UsedPortsTotal(tenant), mem.AssignmentCount(tenant))
}

func TestAssignCustomerConcurrentLastPort(t *testing.T) {
	// Scenario: one port, two concurrent assignments; exactly one wins.
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 1, 0)
	store.AddCabinet(cabinet)

	svc := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AssignCustomer(ctx, tenant, uuid.New(), geo.Coordinate{})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrNoEligibleCabinet)
		}
	}
	assert.Equal(t, 1, winners)

	got, err := store.GetCabinet(ctx, tenant, cabinet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedPorts)
	assert.Equal(t, 1, store.AssignmentCount(tenant))
}

func TestReleaseCustomerRoundTrip(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	customer := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	svc := newTestService(store)
	_, err := svc.AssignCustomer(ctx, tenant, customer, geo.Coordinate{})
	require.NoError(t, err)

	require.NoError(t, svc.ReleaseCustomer(ctx, tenant, customer))

	got, err := store.GetCabinet(ctx, tenant, cabinet.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsedPorts)
	assert.Zero(t, store.AssignmentCount(tenant))
}

func TestReleaseCustomerWithoutAssignmentIsNoop(t *testing.T) {
	// Scenario: releasing an unassigned customer succeeds without error.
	svc := newTestService(NewMemoryStore())
	assert.NoError(t, svc.ReleaseCustomer(context.Background(), uuid.New(), uuid.New()))
}

func TestReassignMovesCustomer(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	customer := uuid.New()
	store := NewMemoryStore()

	east := newCabinet(tenant, 0, 1, 4, 0)
	west := newCabinet(tenant, 0, -1, 4, 0)
	store.AddCabinet(east)
	store.AddCabinet(west)

	svc := newTestService(store)

	first, err := svc.AssignCustomer(ctx, tenant, customer, geo.Coordinate{Longitude: 1})
	require.NoError(t, err)
	assert.Equal(t, east.ID, first.Cabinet.ID)

	// Customer moves; re-assignment frees the old port and takes a new one.
	second, err := svc.AssignCustomer(ctx, tenant, customer, geo.Coordinate{Longitude: -1})
	require.NoError(t, err)
	assert.Equal(t, west.ID, second.Cabinet.ID)

	eastNow, err := store.GetCabinet(ctx, tenant, east.ID)
	require.NoError(t, err)
	assert.Zero(t, eastNow.UsedPorts)

	assert.Equal(t, 1, store.AssignmentCount(tenant))
	assert.Equal(t, store.UsedPortsTotal(tenant), store.AssignmentCount(tenant))
}

func TestReassignKeepsPortWhenAlreadyNearest(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	customer := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	svc := newTestService(store)
	first, err := svc.AssignCustomer(ctx, tenant, customer, geo.Coordinate{})
	require.NoError(t, err)

	second, err := svc.AssignCustomer(ctx, tenant, customer, geo.Coordinate{})
	require.NoError(t, err)
	assert.Equal(t, first.PortNumber, second.PortNumber)
	assert.Equal(t, 1, store.AssignmentCount(tenant))
}

func TestPortStatusesGrid(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	svc := newTestService(store)
	customerA := uuid.New()
	customerB := uuid.New()
	_, err := svc.AssignCustomer(ctx, tenant, customerA, geo.Coordinate{})
	require.NoError(t, err)
	_, err = svc.AssignCustomer(ctx, tenant, customerB, geo.Coordinate{})
	require.NoError(t, err)
	require.NoError(t, svc.ReleaseCustomer(ctx, tenant, customerA))

	statuses, err := svc.PortStatuses(ctx, tenant, cabinet.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	assert.Equal(t, model.PortFree, statuses[0].Status)
	assert.Equal(t, model.PortUsed, statuses[1].Status)
	require.NotNil(t, statuses[1].CustomerID)
	assert.Equal(t, customerB, *statuses[1].CustomerID)
	assert.Equal(t, model.PortFree, statuses[2].Status)
	assert.Equal(t, model.PortFree, statuses[3].Status)
}

func TestPortStatusesTenantMismatch(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(owner, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	svc := newTestService(store)
	_, err := svc.PortStatuses(ctx, uuid.New(), cabinet.ID)
	assert.ErrorIs(t, err, ErrTenantMismatch)
}

// brokenLinkageStore fails every assignment lookup, as a degraded
// storage backend would.
type brokenLinkageStore struct {
	*MemoryStore
}

func (b *brokenLinkageStore) AssignmentForCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*model.CabinetAssignment, error) {
	return nil, errors.New("storage offline")
}

func TestCurrentAssignmentPropagatesStoreError(t *testing.T) {
	svc := newTestService(&brokenLinkageStore{NewMemoryStore()})

	_, err := svc.CurrentAssignment(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err, "a failed lookup must not read as unassigned")
}
