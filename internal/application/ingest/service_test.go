package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/forecast/ingestion/internal/domain/ingest"
)

// stubResolver serves a fixed reference set and records calls
type stubResolver struct {
	mu          sync.Mutex
	refs        *domain.ReferenceSet
	err         error
	resolves    int
	invalidated int
}

func newStubResolver(codes ...string) *stubResolver {
	return &stubResolver{refs: domain.NewReferenceSet(codes, time.Now())}
}

func (r *stubResolver) Resolve(ctx context.Context, forceRefresh bool) (*domain.ReferenceSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolves++
	if r.err != nil {
		return nil, r.err
	}
	return r.refs, nil
}

func (r *stubResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated++
}

// stubSink scripts per-call outcomes: errs[i] is returned on call i, then the
// call succeeds with a full report
type stubSink struct {
	mu    sync.Mutex
	errs  []error
	calls int
	rows  [][]domain.NormalizedRecord
}

func (s *stubSink) Upsert(ctx context.Context, kind domain.DataKind, rows []domain.NormalizedRecord) (domain.UpsertReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.calls
	s.calls++
	s.rows = append(s.rows, rows)
	if call < len(s.errs) && s.errs[call] != nil {
		return domain.UpsertReport{}, s.errs[call]
	}
	return domain.UpsertReport{Processed: len(rows)}, nil
}

func newService(resolver *stubResolver, sink *stubSink) *Service {
	logger := zap.NewNop()
	pipeline := NewPipeline(resolver, 10, logger)
	coordinator := NewCoordinator(sink, 3, time.Millisecond, time.Second, logger)
	return NewService(pipeline, coordinator, resolver, logger)
}

func inventoryRecord(item, warehouse string) domain.RawRecord {
	return domain.RawRecord{
		"item_code":      item,
		"warehouse_code": warehouse,
		"quantity":       1,
		"unit_price":     "2.50",
	}
}

func TestIngestRequiredModeMixedBatch(t *testing.T) {
	resolver := newStubResolver("A", "B")
	sink := &stubSink{}
	svc := newService(resolver, sink)

	result, err := svc.Ingest(context.Background(), "inventory_current_full", []domain.RawRecord{
		inventoryRecord("ITM-1", "A"),
		inventoryRecord("ITM-2", "B"),
		inventoryRecord("ITM-3", "C"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Received)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"C"}, result.InvalidReferenceCodes)
	require.Len(t, result.RejectedSample, 1)
	assert.Equal(t, domain.ReasonUnknownReference, result.RejectedSample[0].Reason)

	// one cache resolve for the whole batch
	assert.Equal(t, 1, resolver.resolves)

	// admitted records preserve input order
	require.Equal(t, 1, sink.calls)
	require.Len(t, sink.rows[0], 2)
	assert.Equal(t, "ITM-1", sink.rows[0][0].(*domain.InventoryRecord).ItemCode)
	assert.Equal(t, "ITM-2", sink.rows[0][1].(*domain.InventoryRecord).ItemCode)
}

func TestIngestOptionalModeBlankReferencePasses(t *testing.T) {
	resolver := newStubResolver("A")
	sink := &stubSink{}
	svc := newService(resolver, sink)

	result, err := svc.Ingest(context.Background(), "sales_orders_incremental", []domain.RawRecord{
		{"order_id": 1, "order_date": "2026-08-20", "item_code": "ITM-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.InvalidReferenceCodes)
	assert.Empty(t, sink.rows[0][0].(*domain.SalesOrderLine).WarehouseCode)
}

func TestIngestDeduplicatesInvalidCodes(t *testing.T) {
	resolver := newStubResolver("A")
	sink := &stubSink{}
	svc := newService(resolver, sink)

	result, err := svc.Ingest(context.Background(), "inventory_current_full", []domain.RawRecord{
		inventoryRecord("ITM-1", "Z"),
		inventoryRecord("ITM-2", "Z"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Z"}, result.InvalidReferenceCodes)
	assert.Len(t, result.RejectedSample, 2)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 0, sink.calls)
}

func TestIngestRetriesTransientFailureOnce(t *testing.T) {
	resolver := newStubResolver("A")
	sink := &stubSink{errs: []error{domain.NewTransientError(errors.New("connection reset"))}}
	svc := newService(resolver, sink)

	result, err := svc.Ingest(context.Background(), "inventory_current_full", []domain.RawRecord{
		inventoryRecord("ITM-1", "A"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, sink.calls)
}

func TestIngestFailsFastOnColdCache(t *testing.T) {
	resolver := newStubResolver()
	resolver.err = domain.ErrSourceUnavailable
	sink := &stubSink{}
	svc := newService(resolver, sink)

	_, err := svc.Ingest(context.Background(), "inventory_current_full", []domain.RawRecord{
		inventoryRecord("ITM-1", "A"),
	})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Equal(t, 0, sink.calls, "no partial persistence on a rejected batch")
}

func TestIngestUnknownDataKind(t *testing.T) {
	svc := newService(newStubResolver(), &stubSink{})

	_, err := svc.Ingest(context.Background(), "customers_full", []domain.RawRecord{{}})
	assert.ErrorIs(t, err, domain.ErrUnknownDataKind)
}

func TestIngestEmptyBatch(t *testing.T) {
	resolver := newStubResolver()
	sink := &stubSink{}
	svc := newService(resolver, sink)

	result, err := svc.Ingest(context.Background(), "items_full", nil)
	require.NoError(t, err)
	assert.Zero(t, result.Received)
	assert.Zero(t, result.Processed)
	assert.Equal(t, 0, resolver.resolves)
	assert.Equal(t, 0, sink.calls)
}

func TestIngestMasterDataSkipsReferenceResolve(t *testing.T) {
	resolver := newStubResolver()
	resolver.err = domain.ErrSourceUnavailable
	sink := &stubSink{}
	svc := newService(resolver, sink)

	// items carry no reference, so a dead reference source must not matter
	result, err := svc.Ingest(context.Background(), "items_full", []domain.RawRecord{
		{"item_code": "ITM-1", "item_name": "Widget"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, resolver.resolves)
}

func TestIngestWarehousesInvalidatesCache(t *testing.T) {
	resolver := newStubResolver()
	sink := &stubSink{}
	svc := newService(resolver, sink)

	_, err := svc.Ingest(context.Background(), "warehouses_full", []domain.RawRecord{
		{"warehouse_code": "WH-01", "warehouse_name": "Main"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.invalidated)
}

func TestIngestTotalAccounting(t *testing.T) {
	resolver := newStubResolver("A")
	sink := &stubSink{}
	svc := newService(resolver, sink)

	result, err := svc.Ingest(context.Background(), "inventory_current_full", []domain.RawRecord{
		inventoryRecord("ITM-1", "A"),
		inventoryRecord("ITM-2", "Z"),
		{"item_code": "ITM-3", "warehouse_code": "A", "quantity": "bogus"},
		{"warehouse_code": "A"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Received)
	assert.Equal(t, result.Received, result.Processed+result.Failed)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.RejectedReferences)
	assert.Len(t, result.HardErrors, 2)
}

func TestCoordinatorExhaustedRetriesFailAllRows(t *testing.T) {
	transient := domain.NewTransientError(errors.New("timeout"))
	sink := &stubSink{errs: []error{transient, transient, transient}}
	coordinator := NewCoordinator(sink, 3, time.Millisecond, time.Second, zap.NewNop())

	rows := []domain.NormalizedRecord{
		&domain.ItemRecord{Code: "ITM-1"},
		&domain.ItemRecord{Code: "ITM-2"},
	}
	report := coordinator.Persist(context.Background(), domain.KindItems, rows)

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 3, sink.calls)
}

func TestCoordinatorNonTransientDegradesToPerRow(t *testing.T) {
	// Batch call fails hard, then per-row: first row fails, second succeeds
	hard := errors.New("constraint violation")
	sink := &stubSink{errs: []error{hard, hard, nil}}
	coordinator := NewCoordinator(sink, 3, time.Millisecond, time.Second, zap.NewNop())

	rows := []domain.NormalizedRecord{
		&domain.ItemRecord{Code: "ITM-1"},
		&domain.ItemRecord{Code: "ITM-2"},
	}
	report := coordinator.Persist(context.Background(), domain.KindItems, rows)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.RowErrors, 1)
	assert.Equal(t, 0, report.RowErrors[0].Index)
}

func TestCoordinatorSampleCap(t *testing.T) {
	resolver := newStubResolver("A")
	pipeline := NewPipeline(resolver, 3, zap.NewNop())

	records := make([]domain.RawRecord, 8)
	for i := range records {
		records[i] = inventoryRecord("ITM", "Z")
	}
	result, err := pipeline.Admit(context.Background(), domain.KindInventory, records)
	require.NoError(t, err)

	assert.Equal(t, 8, result.RejectedCount)
	assert.Len(t, result.RejectedSample, 3)
}
