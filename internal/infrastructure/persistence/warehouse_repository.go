package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/forecast/ingestion/internal/domain/masterdata"
	"github.com/forecast/ingestion/internal/infrastructure/persistence/models"
)

// ErrWarehouseNotFound is returned when no warehouse matches a lookup
var ErrWarehouseNotFound = errors.New("warehouse not found")

// GormWarehouseRepository implements masterdata.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// ListActiveCodes returns the codes of all active warehouses
func (r *GormWarehouseRepository) ListActiveCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&models.WarehouseModel{}).
		Where("is_active = ?", true).
		Order("warehouse_code").
		Pluck("warehouse_code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// FindByCode finds a warehouse by its code
func (r *GormWarehouseRepository) FindByCode(ctx context.Context, code string) (*masterdata.Warehouse, error) {
	var m models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Where("warehouse_code = ?", code).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWarehouseNotFound
		}
		return nil, err
	}
	return &masterdata.Warehouse{
		Code:      m.WarehouseCode,
		Name:      m.WarehouseName,
		IsActive:  m.IsActive,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

var _ masterdata.WarehouseRepository = (*GormWarehouseRepository)(nil)
