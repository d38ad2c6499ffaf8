package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/model"
)

var ErrQuotaExceeded = errors.New("customer quota exceeded for tenant plan")

// Usage is a tenant's customer headcount against its plan limit.
// Max == 0 means unlimited.
type Usage struct {
	Used int64 `json:"used"`
	Max  int   `json:"max"`
}

// Manager enforces the per-tenant customer limit that comes with the
// tenant's platform plan.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

func (m *Manager) Usage(ctx context.Context, tenantID uuid.UUID) (*Usage, error) {
	var tenant model.Tenant
	err := m.db.WithContext(ctx).
		Select("max_customers").
		First(&tenant, "id = ?", tenantID).Error
	if err != nil {
		return nil, fmt.Errorf("load tenant quota: %w", err)
	}

	var used int64
	err = m.db.WithContext(ctx).Model(&model.Customer{}).
		Where("tenant_id = ?", tenantID).
		Count(&used).Error
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	return &Usage{Used: used, Max: tenant.MaxCustomers}, nil
}

// AdmitCustomer reports whether the tenant may register one more customer.
func (m *Manager) AdmitCustomer(ctx context.Context, tenantID uuid.UUID) error {
	usage, err := m.Usage(ctx, tenantID)
	if err != nil {
		return err
	}
	if usage.Max > 0 && usage.Used >= int64(usage.Max) {
		return ErrQuotaExceeded
	}
	return nil
}
