package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forecast/ingestion/internal/domain/ingest"
	"github.com/forecast/ingestion/internal/infrastructure/persistence/models"
)

// GormIngestSink implements ingest.Sink on GORM. Every write is an upsert on
// the record's natural key, so redelivered batches update rows in place.
type GormIngestSink struct {
	db *gorm.DB
}

// NewGormIngestSink creates a new GormIngestSink
func NewGormIngestSink(db *gorm.DB) *GormIngestSink {
	return &GormIngestSink{db: db}
}

// Upsert writes rows of one kind in a single statement. A returned error
// covers the whole call; transient I/O failures are wrapped so the
// coordinator can retry them.
func (s *GormIngestSink) Upsert(ctx context.Context, kind ingest.DataKind, rows []ingest.NormalizedRecord) (ingest.UpsertReport, error) {
	if len(rows) == 0 {
		return ingest.UpsertReport{}, nil
	}

	tx := s.db.WithContext(ctx)
	var err error
	switch kind {
	case ingest.KindWarehouses:
		err = upsertRows(tx, rows, models.NewWarehouseModel,
			[]string{"warehouse_code"}, []string{"warehouse_name", "is_active", "updated_at"})
	case ingest.KindVendors:
		err = upsertRows(tx, rows, models.NewVendorModel,
			[]string{"vendor_code"}, []string{"vendor_name", "contact_person", "phone", "email", "is_active", "updated_at"})
	case ingest.KindItems:
		err = upsertRows(tx, rows, models.NewItemModel,
			[]string{"item_code"}, []string{"item_name", "item_group", "is_active", "updated_at"})
	case ingest.KindInventory:
		err = upsertRows(tx, rows, models.NewInventoryModel,
			[]string{"item_code", "warehouse_code"}, []string{"quantity", "unit_price", "updated_at"})
	case ingest.KindSalesOrders:
		err = upsertRows(tx, rows, models.NewSalesOrderModel,
			[]string{"order_id", "item_code"},
			[]string{"order_date", "customer_code", "warehouse_code", "quantity", "unit_price", "line_total", "updated_at"})
	case ingest.KindPurchaseOrders:
		err = upsertRows(tx, rows, models.NewPurchaseOrderModel,
			[]string{"order_id", "item_code"},
			[]string{"order_date", "vendor_code", "warehouse_code", "quantity", "unit_price", "line_total", "updated_at"})
	case ingest.KindCosts:
		err = upsertRows(tx, rows, models.NewCostModel,
			[]string{"item_code", "cost_date"}, []string{"avg_cost", "last_cost", "updated_at"})
	case ingest.KindPricing:
		err = upsertRows(tx, rows, models.NewPriceModel,
			[]string{"item_code", "price_list", "currency"}, []string{"price", "updated_at"})
	default:
		return ingest.UpsertReport{}, ingest.ErrUnknownDataKind
	}

	if err != nil {
		return ingest.UpsertReport{}, classify(err)
	}
	return ingest.UpsertReport{Processed: len(rows)}, nil
}

// upsertRows converts typed records to persistence models and writes them
// with an on-conflict update on the natural key columns
func upsertRows[R ingest.NormalizedRecord, M any](tx *gorm.DB, rows []ingest.NormalizedRecord, convert func(R) M, keyColumns, updateColumns []string) error {
	ms := make([]M, 0, len(rows))
	for _, row := range rows {
		typed, ok := row.(R)
		if !ok {
			return fmt.Errorf("record type %T does not match batch kind", row)
		}
		ms = append(ms, convert(typed))
	}

	columns := make([]clause.Column, len(keyColumns))
	for i, name := range keyColumns {
		columns[i] = clause.Column{Name: name}
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   columns,
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).Create(&ms).Error
}

// classify wraps connection-level failures as transient so the coordinator
// retries them; everything else (constraint violations, bad data) stays
// non-transient and fails rows instead
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return ingest.NewTransientError(err)
	case errors.As(err, &netErr):
		return ingest.NewTransientError(err)
	}
	return err
}

var _ ingest.Sink = (*GormIngestSink)(nil)
