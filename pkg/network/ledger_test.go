package network

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/fibertrack/fibertrack/pkg/model"
)

func newCabinet(tenantID uuid.UUID, lat, lng float64, total, used int) model.Cabinet {
	return model.Cabinet{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       "CTO",
		Latitude:   lat,
		Longitude:  lng,
		TotalPorts: total,
		UsedPorts:  used,
	}
}

func TestReservePortTakesLowestFreePort(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	for want := 1; want <= 3; want++ {
		port, err := store.ReservePort(ctx, tenant, cabinet.ID, uuid.New())
		if err != nil {
			t.Fatalf("ReservePort() error: %v", err)
		}
		if port != want {
			t.Fatalf("expected port %d, got %d", want, port)
		}
	}

	// Free port 2; the next reservation must reuse it.
	if err := store.ReleasePort(ctx, tenant, cabinet.ID, 2); err != nil {
		t.Fatalf("ReleasePort() error: %v", err)
	}
	port, err := store.ReservePort(ctx, tenant, cabinet.ID, uuid.New())
	if err != nil {
		t.Fatalf("ReservePort() error: %v", err)
	}
	if port != 2 {
		t.Fatalf("expected freed port 2 to be reused, got %d", port)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 8, 0)
	store.AddCabinet(cabinet)

	before, _ := store.GetCabinet(ctx, tenant, cabinet.ID)

	port, err := store.ReservePort(ctx, tenant, cabinet.ID, uuid.New())
	if err != nil {
		t.Fatalf("ReservePort() error: %v", err)
	}
	if err := store.ReleasePort(ctx, tenant, cabinet.ID, port); err != nil {
		t.Fatalf("ReleasePort() error: %v", err)
	}

	after, _ := store.GetCabinet(ctx, tenant, cabinet.ID)
	if after.UsedPorts != before.UsedPorts {
		t.Fatalf("expected used_ports restored to %d, got %d", before.UsedPorts, after.UsedPorts)
	}
}

func TestReservePortFullCabinet(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 1, 0)
	store.AddCabinet(cabinet)

	if _, err := store.ReservePort(ctx, tenant, cabinet.ID, uuid.New()); err != nil {
		t.Fatalf("ReservePort() error: %v", err)
	}
	if _, err := store.ReservePort(ctx, tenant, cabinet.ID, uuid.New()); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestReleaseUnreservedPort(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	if err := store.ReleasePort(ctx, tenant, cabinet.ID, 3); !errors.Is(err, ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort, got %v", err)
	}

	got, _ := store.GetCabinet(ctx, tenant, cabinet.ID)
	if got.UsedPorts != 0 {
		t.Fatalf("used_ports must never go negative, got %d", got.UsedPorts)
	}
}

func TestResizeBelowUsageRejected(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	for i := 0; i < 3; i++ {
		if _, err := store.ReservePort(ctx, tenant, cabinet.ID, uuid.New()); err != nil {
			t.Fatalf("ReservePort() error: %v", err)
		}
	}

	if err := store.ResizeCabinet(ctx, tenant, cabinet.ID, 2); !errors.Is(err, ErrCapacityBelowUsage) {
		t.Fatalf("expected ErrCapacityBelowUsage, got %v", err)
	}

	got, _ := store.GetCabinet(ctx, tenant, cabinet.ID)
	if got.TotalPorts != 4 || got.UsedPorts != 3 {
		t.Fatalf("cabinet state must be unchanged after rejected resize, got %d/%d", got.UsedPorts, got.TotalPorts)
	}

	if err := store.ResizeCabinet(ctx, tenant, cabinet.ID, 3); err != nil {
		t.Fatalf("resize to exactly current usage should succeed: %v", err)
	}
}

func TestResizeBelowHighestReservedPortRejected(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(tenant, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	customer := uuid.New()
	for i, id := range []uuid.UUID{uuid.New(), uuid.New(), customer} {
		port, err := store.ReservePort(ctx, tenant, cabinet.ID, id)
		if err != nil {
			t.Fatalf("ReservePort() error: %v", err)
		}
		if port != i+1 {
			t.Fatalf("expected port %d, got %d", i+1, port)
		}
	}
	// Free the low ports; the last customer stays on port 3.
	if err := store.ReleasePort(ctx, tenant, cabinet.ID, 1); err != nil {
		t.Fatalf("ReleasePort() error: %v", err)
	}
	if err := store.ReleasePort(ctx, tenant, cabinet.ID, 2); err != nil {
		t.Fatalf("ReleasePort() error: %v", err)
	}

	// used_ports is 1, but shrinking to 1 would cut port 3 out of the
	// grid while its assignment stays live.
	if err := store.ResizeCabinet(ctx, tenant, cabinet.ID, 1); !errors.Is(err, ErrCapacityBelowUsage) {
		t.Fatalf("expected ErrCapacityBelowUsage, got %v", err)
	}

	got, _ := store.GetCabinet(ctx, tenant, cabinet.ID)
	if got.TotalPorts != 4 {
		t.Fatalf("cabinet state must be unchanged after rejected resize, got total %d", got.TotalPorts)
	}
	assignment, err := store.AssignmentForCustomer(ctx, tenant, customer)
	if err != nil || assignment == nil || assignment.PortNumber != 3 {
		t.Fatalf("expected customer still on port 3, got %+v (err %v)", assignment, err)
	}

	if err := store.ResizeCabinet(ctx, tenant, cabinet.ID, 3); err != nil {
		t.Fatalf("resize down to the highest reserved port should succeed: %v", err)
	}
}

func TestReservePortTenantMismatch(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	intruder := uuid.New()
	store := NewMemoryStore()
	cabinet := newCabinet(owner, 0, 0, 4, 0)
	store.AddCabinet(cabinet)

	if _, err := store.ReservePort(ctx, intruder, cabinet.ID, uuid.New()); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}
	if err := store.ReleasePort(ctx, intruder, cabinet.ID, 1); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := NewMemoryStore()

	const capacity = 8
	const attempts = 50

	cabinet := newCabinet(tenant, 0, 0, capacity, 0)
	store.AddCabinet(cabinet)

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ReservePort(ctx, tenant, cabinet.ID, uuid.New())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrCapacityExceeded):
			failed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != capacity {
		t.Fatalf("expected exactly %d successful reservations, got %d", capacity, succeeded)
	}
	if failed != attempts-capacity {
		t.Fatalf("expected %d capacity failures, got %d", attempts-capacity, failed)
	}

	got, _ := store.GetCabinet(ctx, tenant, cabinet.ID)
	if got.UsedPorts != capacity {
		t.Fatalf("expected used_ports == %d, got %d", capacity, got.UsedPorts)
	}

	ports := map[int]bool{}
	assignments, _ := store.CabinetAssignments(ctx, tenant, cabinet.ID)
	for _, a := range assignments {
		if a.PortNumber < 1 || a.PortNumber > capacity {
			t.Fatalf("port number %d out of range", a.PortNumber)
		}
		if ports[a.PortNumber] {
			t.Fatalf("port %d double-booked", a.PortNumber)
		}
		ports[a.PortNumber] = true
	}
}
