package ingest

import "context"

// RowError reports a per-row persistence failure
type RowError struct {
	Index int
	Err   error
}

// UpsertReport is the outcome of one sink call
type UpsertReport struct {
	Processed int
	Failed    int
	RowErrors []RowError
}

// Sink persists admitted records. Upserts are keyed by each record's natural
// composite key, so re-sending the same logical record updates it in place.
// A returned error means the whole call failed and nothing useful is in the
// report; per-row failures come back inside the report instead.
type Sink interface {
	Upsert(ctx context.Context, kind DataKind, rows []NormalizedRecord) (UpsertReport, error)
}
