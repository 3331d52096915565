package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/forecast/ingestion/internal/domain/ingest"
)

// Service runs the full ingestion pipeline for one batch: admission against
// the reference cache, coordinated persistence, then outcome aggregation.
// Batches for different kinds run concurrently; the reference cache is the
// only shared state.
type Service struct {
	pipeline    *Pipeline
	coordinator *Coordinator
	resolver    domain.ReferenceResolver
	logger      *zap.Logger
}

// NewService creates an ingestion service
func NewService(pipeline *Pipeline, coordinator *Coordinator, resolver domain.ReferenceResolver, logger *zap.Logger) *Service {
	return &Service{
		pipeline:    pipeline,
		coordinator: coordinator,
		resolver:    resolver,
		logger:      logger,
	}
}

// Ingest processes one batch end to end. It returns ErrUnknownDataKind for an
// unrecognized data_type and ErrSourceUnavailable when the reference source
// is down with no cached fallback; every other failure is absorbed into the
// result counts.
func (s *Service) Ingest(ctx context.Context, dataType string, records []domain.RawRecord) (*BatchResult, error) {
	kind, err := domain.ParseDataKind(dataType)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return EmptyResult(kind), nil
	}

	// Batch ID identifies this delivery in the logs across concurrent batches
	batchID := uuid.NewString()
	start := time.Now()
	admission, err := s.pipeline.Admit(ctx, kind, records)
	if err != nil {
		return nil, err
	}

	report := s.coordinator.Persist(ctx, kind, admission.Admitted)
	result := Aggregate(admission, report)

	// A successful warehouse load changes the valid-code universe, so the
	// next reference-checked batch must see a fresh set
	if kind == domain.KindWarehouses && report.Processed > 0 {
		s.resolver.Invalidate()
	}

	s.logger.Info("batch ingested",
		zap.String("batch_id", batchID),
		zap.String("data_type", dataType),
		zap.Int("received", result.Received),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("rejected_references", result.RejectedReferences),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
