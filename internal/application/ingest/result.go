package ingest

import (
	domain "github.com/forecast/ingestion/internal/domain/ingest"
)

// RejectedRecord is one entry of the bounded rejection sample returned to the
// agent: enough natural-key context to find the row upstream, plus the
// offending reference and the reason.
type RejectedRecord struct {
	BusinessKey map[string]string `json:"business_key"`
	Reference   string            `json:"warehouse_code"`
	Reason      string            `json:"reason"`
}

// BatchResult is the outcome of one batch ingestion. Every received record is
// accounted for exactly once: processed, rejected on a reference check,
// malformed, or failed at persistence.
type BatchResult struct {
	DataKind              string           `json:"data_type"`
	Received              int              `json:"received"`
	Processed             int              `json:"processed"`
	Failed                int              `json:"failed"`
	RejectedReferences    int              `json:"rejected_references"`
	InvalidReferenceCodes []string         `json:"invalid_warehouse_codes"`
	RejectedSample        []RejectedRecord `json:"rejected_records_sample"`
	HardErrors            []string         `json:"hard_errors"`
}

// Aggregate composes the admission and persistence outcomes into the final
// batch result. Failed covers persistence failures, reference rejections and
// hard errors together, so Processed + Failed always equals Received.
func Aggregate(admission *AdmissionResult, persist domain.UpsertReport) *BatchResult {
	return &BatchResult{
		DataKind:              string(admission.Kind),
		Received:              admission.Received,
		Processed:             persist.Processed,
		Failed:                persist.Failed + admission.RejectedCount + len(admission.HardErrors),
		RejectedReferences:    admission.RejectedCount,
		InvalidReferenceCodes: admission.InvalidCodes,
		RejectedSample:        admission.RejectedSample,
		HardErrors:            admission.HardErrors,
	}
}

// EmptyResult is the zero-count result for a batch with no records
func EmptyResult(kind domain.DataKind) *BatchResult {
	return &BatchResult{
		DataKind:              string(kind),
		InvalidReferenceCodes: []string{},
		RejectedSample:        []RejectedRecord{},
		HardErrors:            []string{},
	}
}
