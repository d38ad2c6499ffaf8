package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibertrack/fibertrack/pkg/eventbus"
)

func TestRowFromEvent(t *testing.T) {
	tenantID := uuid.New()
	cabinetID := uuid.New()
	customerID := uuid.New()

	event, err := eventbus.NewEvent("customer_assigned", eventbus.AssignmentEvent{
		TenantID:   tenantID.String(),
		CabinetID:  cabinetID.String(),
		CustomerID: customerID.String(),
		PortNumber: 5,
	})
	require.NoError(t, err)

	row, err := rowFromEvent(&event)
	require.NoError(t, err)

	assert.Equal(t, "customer_assigned", row.Type)
	assert.Equal(t, tenantID, row.TenantID)
	require.NotNil(t, row.CabinetID)
	assert.Equal(t, cabinetID, *row.CabinetID)
	require.NotNil(t, row.CustomerID)
	assert.Equal(t, customerID, *row.CustomerID)
	assert.Equal(t, 5, row.PortNumber)
}

func TestRowFromEventRejectsBadTenant(t *testing.T) {
	event, err := eventbus.NewEvent("customer_assigned", eventbus.AssignmentEvent{
		TenantID: "not-a-uuid",
	})
	require.NoError(t, err)

	_, err = rowFromEvent(&event)
	assert.Error(t, err)
}

func TestRowFromEventRejectsGarbagePayload(t *testing.T) {
	event := eventbus.Event{Type: "customer_assigned", Data: []byte("{")}
	_, err := rowFromEvent(&event)
	assert.Error(t, err)
}
