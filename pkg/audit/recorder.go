package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/eventbus"
	"github.com/fibertrack/fibertrack/pkg/model"
)

// Recorder subscribes to the event bus and persists every port and cabinet
// event as an audit row. Events with malformed payloads are dropped with a
// warning; the bus is fire-and-forget, so there is nothing to retry against.
type Recorder struct {
	db     *gorm.DB
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewRecorder(db *gorm.DB, bus *eventbus.Bus, logger *zap.Logger) *Recorder {
	return &Recorder{db: db, bus: bus, logger: logger}
}

func (r *Recorder) Run(ctx context.Context) {
	events := r.bus.Subscribe(ctx, eventbus.ChannelAssignment, eventbus.ChannelCabinet)
	for event := range events {
		row, err := rowFromEvent(event)
		if err != nil {
			r.logger.Warn("dropping malformed audit event",
				zap.String("type", event.Type), zap.Error(err))
			continue
		}
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			r.logger.Error("failed to persist audit event",
				zap.String("type", event.Type), zap.Error(err))
		}
	}
}

func rowFromEvent(event *eventbus.Event) (*model.AuditEvent, error) {
	var payload eventbus.AssignmentEvent
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return nil, err
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return nil, err
	}

	row := &model.AuditEvent{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Type:       event.Type,
		PortNumber: payload.PortNumber,
	}
	if cabinetID, err := uuid.Parse(payload.CabinetID); err == nil {
		row.CabinetID = &cabinetID
	}
	if customerID, err := uuid.Parse(payload.CustomerID); err == nil {
		row.CustomerID = &customerID
	}
	return row, nil
}
