package masterdata

import (
	"context"
	"time"
)

// Warehouse is a warehouse master-data entity. Its code is the reference
// every dependent record must resolve against before persistence.
type Warehouse struct {
	Code      string
	Name      string
	IsActive  bool
	UpdatedAt time.Time
}

// WarehouseRepository is the reference source: a queryable store of
// warehouse master data.
type WarehouseRepository interface {
	// ListActiveCodes returns the complete set of valid warehouse codes in
	// one call; no pagination contract is assumed
	ListActiveCodes(ctx context.Context) ([]string, error)

	// FindByCode looks up a single warehouse
	FindByCode(ctx context.Context, code string) (*Warehouse, error)
}
