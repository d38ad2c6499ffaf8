package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/network"
)

const uniqueViolation = "23505"

// NetworkRepository is the Postgres implementation of network.Store plus
// the cabinet and group CRUD the map screens use. Port reservation relies
// on a conditional update (used_ports < total_ports, rows-affected = 1)
// so capacity is never oversold without taking a global lock, and on the
// unique (cabinet_id, port_number) index for port-number races.
type NetworkRepository struct {
	db *gorm.DB
}

func NewNetworkRepository(db *gorm.DB) *NetworkRepository {
	return &NetworkRepository{db: db}
}

func (r *NetworkRepository) ListCabinets(ctx context.Context, tenantID uuid.UUID) ([]model.Cabinet, error) {
	var cabinets []model.Cabinet
	err := r.db.WithContext(ctx).
		Preload("Group").
		Where("tenant_id = ?", tenantID).
		Order("name").
		Find(&cabinets).Error
	return cabinets, err
}

func (r *NetworkRepository) GetCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID) (*model.Cabinet, error) {
	var cabinet model.Cabinet
	err := r.db.WithContext(ctx).Preload("Group").First(&cabinet, "id = ?", cabinetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, network.ErrCabinetNotFound
	}
	if err != nil {
		return nil, err
	}
	if cabinet.TenantID != tenantID {
		return nil, network.ErrTenantMismatch
	}
	return &cabinet, nil
}

func (r *NetworkRepository) CreateCabinet(ctx context.Context, cabinet *model.Cabinet) error {
	return r.db.WithContext(ctx).Create(cabinet).Error
}

func (r *NetworkRepository) UpdateCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Cabinet{}).
		Where("id = ? AND tenant_id = ?", cabinetID, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyCabinet(ctx, tenantID, cabinetID, nil)
	}
	return nil
}

// DeleteCabinet refuses to delete a cabinet that still has reserved ports.
func (r *NetworkRepository) DeleteCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND used_ports = 0", cabinetID, tenantID).
		Delete(&model.Cabinet{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyCabinet(ctx, tenantID, cabinetID, network.ErrCabinetOccupied)
	}
	return nil
}

func (r *NetworkRepository) ReservePort(ctx context.Context, tenantID, cabinetID, customerID uuid.UUID) (int, error) {
	var port int

	// A competing transaction that passed the capacity gate can pick the
	// same lowest port; the unique index rejects one of them and that
	// attempt is replayed.
	for attempt := 0; ; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&model.Cabinet{}).
				Where("id = ? AND tenant_id = ? AND used_ports < total_ports", cabinetID, tenantID).
				UpdateColumn("used_ports", gorm.Expr("used_ports + 1"))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return r.classifyCabinetTx(tx, tenantID, cabinetID, network.ErrCapacityExceeded)
			}

			var cabinet model.Cabinet
			if err := tx.First(&cabinet, "id = ?", cabinetID).Error; err != nil {
				return err
			}

			var taken []int
			if err := tx.Model(&model.CabinetAssignment{}).
				Where("cabinet_id = ?", cabinetID).
				Order("port_number").
				Pluck("port_number", &taken).Error; err != nil {
				return err
			}

			port = lowestFreePort(taken, cabinet.TotalPorts)
			if port == 0 {
				return network.ErrCapacityExceeded
			}

			return tx.Create(&model.CabinetAssignment{
				ID:         uuid.New(),
				TenantID:   tenantID,
				CabinetID:  cabinetID,
				PortNumber: port,
				CustomerID: customerID,
			}).Error
		})

		if isUniqueViolation(err) && attempt < 3 {
			continue
		}
		if err != nil {
			return 0, err
		}
		return port, nil
	}
}

func (r *NetworkRepository) ReleasePort(ctx context.Context, tenantID, cabinetID uuid.UUID, portNumber int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("cabinet_id = ? AND tenant_id = ? AND port_number = ?", cabinetID, tenantID, portNumber).
			Delete(&model.CabinetAssignment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.classifyCabinetTx(tx, tenantID, cabinetID, network.ErrInvalidPort)
		}

		decrement := tx.Model(&model.Cabinet{}).
			Where("id = ? AND used_ports > 0", cabinetID).
			UpdateColumn("used_ports", gorm.Expr("used_ports - 1"))
		if decrement.Error != nil {
			return decrement.Error
		}
		if decrement.RowsAffected == 0 {
			return fmt.Errorf("cabinet %s: assignment existed with used_ports at zero", cabinetID)
		}
		return nil
	})
}

// ResizeCabinet shrinks or grows total_ports. A shrink is rejected when it
// would go under used_ports or under the highest reserved port number:
// freed low ports do not make room to cut off an assignment still sitting
// on a high port.
func (r *NetworkRepository) ResizeCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID, newTotal int) error {
	result := r.db.WithContext(ctx).Model(&model.Cabinet{}).
		Where("id = ? AND tenant_id = ? AND used_ports <= ?", cabinetID, tenantID, newTotal).
		Where("? >= (SELECT COALESCE(MAX(port_number), 0) FROM cabinet_assignments WHERE cabinet_id = ?)",
			newTotal, cabinetID).
		UpdateColumn("total_ports", newTotal)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyCabinet(ctx, tenantID, cabinetID, network.ErrCapacityBelowUsage)
	}
	return nil
}

func (r *NetworkRepository) AssignmentForCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*model.CabinetAssignment, error) {
	var assignment model.CabinetAssignment
	err := r.db.WithContext(ctx).
		First(&assignment, "tenant_id = ? AND customer_id = ?", tenantID, customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *NetworkRepository) CabinetAssignments(ctx context.Context, tenantID, cabinetID uuid.UUID) ([]model.CabinetAssignment, error) {
	if _, err := r.GetCabinet(ctx, tenantID, cabinetID); err != nil {
		return nil, err
	}

	var assignments []model.CabinetAssignment
	err := r.db.WithContext(ctx).
		Where("cabinet_id = ? AND tenant_id = ?", cabinetID, tenantID).
		Order("port_number").
		Find(&assignments).Error
	return assignments, err
}

// ---- cabinet groups ----

func (r *NetworkRepository) ListGroups(ctx context.Context, tenantID uuid.UUID) ([]model.CabinetGroup, error) {
	var groups []model.CabinetGroup
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name").
		Find(&groups).Error
	return groups, err
}

func (r *NetworkRepository) CreateGroup(ctx context.Context, group *model.CabinetGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *NetworkRepository) UpdateGroup(ctx context.Context, tenantID, groupID uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.CabinetGroup{}).
		Where("id = ? AND tenant_id = ?", groupID, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteGroup removes the group and reverts its cabinets to ungrouped.
func (r *NetworkRepository) DeleteGroup(ctx context.Context, tenantID, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Cabinet{}).
			Where("group_id = ? AND tenant_id = ?", groupID, tenantID).
			Update("group_id", nil).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND tenant_id = ?", groupID, tenantID).Delete(&model.CabinetGroup{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ---- map location ----

func (r *NetworkRepository) LastMapLocation(ctx context.Context, tenantID uuid.UUID) (*model.MapLocation, error) {
	var location model.MapLocation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		First(&location).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *NetworkRepository) SaveMapLocation(ctx context.Context, location *model.MapLocation) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *NetworkRepository) classifyCabinet(ctx context.Context, tenantID, cabinetID uuid.UUID, fallback error) error {
	return r.classifyCabinetTx(r.db.WithContext(ctx), tenantID, cabinetID, fallback)
}

// classifyCabinetTx explains a zero-rows-affected conditional update:
// missing cabinet, wrong tenant, or the condition itself (fallback).
func (r *NetworkRepository) classifyCabinetTx(tx *gorm.DB, tenantID, cabinetID uuid.UUID, fallback error) error {
	var cabinet model.Cabinet
	err := tx.Select("id", "tenant_id").First(&cabinet, "id = ?", cabinetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return network.ErrCabinetNotFound
	}
	if err != nil {
		return err
	}
	if cabinet.TenantID != tenantID {
		return network.ErrTenantMismatch
	}
	return fallback
}

func lowestFreePort(taken []int, totalPorts int) int {
	used := make(map[int]bool, len(taken))
	for _, n := range taken {
		used[n] = true
	}
	for n := 1; n <= totalPorts; n++ {
		if !used[n] {
			return n
		}
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
