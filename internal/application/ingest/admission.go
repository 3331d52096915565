package ingest

import (
	"context"
	"sort"

	"go.uber.org/zap"

	domain "github.com/forecast/ingestion/internal/domain/ingest"
)

// DefaultSampleSize bounds the rejection detail returned per batch
const DefaultSampleSize = 10

// AdmissionResult is the outcome of running one batch through validation.
// Admitted records keep their input order.
type AdmissionResult struct {
	Kind           domain.DataKind
	Received       int
	Admitted       []domain.NormalizedRecord
	RejectedCount  int
	InvalidCodes   []string
	RejectedSample []RejectedRecord
	HardErrors     []string
}

// Pipeline admits batches against the current reference set. It resolves the
// set once per batch, never per record.
type Pipeline struct {
	resolver   domain.ReferenceResolver
	sampleSize int
	logger     *zap.Logger
}

// NewPipeline creates an admission pipeline. A non-positive sampleSize falls
// back to DefaultSampleSize.
func NewPipeline(resolver domain.ReferenceResolver, sampleSize int, logger *zap.Logger) *Pipeline {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Pipeline{
		resolver:   resolver,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

// Admit validates every record of a batch against one resolved reference
// set. Kinds with no reference policy skip the resolve entirely, so ingesting
// warehouse master data itself never depends on the cache. When the resolve
// fails the whole batch is rejected with zero admitted records.
func (p *Pipeline) Admit(ctx context.Context, kind domain.DataKind, records []domain.RawRecord) (*AdmissionResult, error) {
	var refs *domain.ReferenceSet
	if domain.PolicyFor(kind) != domain.PolicyNone {
		var err error
		refs, err = p.resolver.Resolve(ctx, false)
		if err != nil {
			p.logger.Error("reference resolve failed, rejecting batch",
				zap.String("data_type", string(kind)),
				zap.Int("records", len(records)),
				zap.Error(err))
			return nil, err
		}
	}

	result := &AdmissionResult{
		Kind:           kind,
		Received:       len(records),
		InvalidCodes:   []string{},
		RejectedSample: []RejectedRecord{},
		HardErrors:     []string{},
	}
	invalid := make(map[string]struct{})

	for _, raw := range records {
		out := domain.Validate(kind, raw, refs)
		switch out.Status {
		case domain.StatusAdmitted:
			result.Admitted = append(result.Admitted, out.Record)
		case domain.StatusRejected:
			result.RejectedCount++
			if out.Reference != "" {
				invalid[out.Reference] = struct{}{}
			}
			if len(result.RejectedSample) < p.sampleSize {
				result.RejectedSample = append(result.RejectedSample, RejectedRecord{
					BusinessKey: out.Keys,
					Reference:   out.Reference,
					Reason:      out.Reason,
				})
			}
		case domain.StatusMalformed:
			result.HardErrors = append(result.HardErrors, out.Reason)
		}
	}

	for code := range invalid {
		result.InvalidCodes = append(result.InvalidCodes, code)
	}
	sort.Strings(result.InvalidCodes)

	if result.RejectedCount > 0 || len(result.HardErrors) > 0 {
		p.logger.Warn("batch admission rejected records",
			zap.String("data_type", string(kind)),
			zap.Int("received", result.Received),
			zap.Int("admitted", len(result.Admitted)),
			zap.Int("rejected", result.RejectedCount),
			zap.Int("hard_errors", len(result.HardErrors)),
			zap.Strings("invalid_codes", result.InvalidCodes))
	}
	return result, nil
}
