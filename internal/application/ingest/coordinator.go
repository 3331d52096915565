package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	domain "github.com/forecast/ingestion/internal/domain/ingest"
)

const (
	// DefaultMaxAttempts bounds retries of a transient persistence failure
	DefaultMaxAttempts = 3
	// DefaultBackoff is the pause between persistence attempts
	DefaultBackoff = 1 * time.Second
	// DefaultPersistTimeout caps one persistence attempt
	DefaultPersistTimeout = 30 * time.Second
)

// Coordinator drives persistence of an admitted batch. Transient failures
// retry the whole batch a bounded number of times with backoff; a
// non-transient batch failure degrades to per-row writes so one bad row
// cannot sink the rest. Rows that never make it are counted as failed,
// never dropped.
type Coordinator struct {
	sink        domain.Sink
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	logger      *zap.Logger
}

// NewCoordinator creates a persistence coordinator. Non-positive settings
// fall back to the defaults.
func NewCoordinator(sink domain.Sink, maxAttempts int, backoff, timeout time.Duration, logger *zap.Logger) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}
	return &Coordinator{
		sink:        sink,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		timeout:     timeout,
		logger:      logger,
	}
}

// Persist writes the admitted rows. It never returns an error: every row
// ends up counted as processed or failed in the report.
func (c *Coordinator) Persist(ctx context.Context, kind domain.DataKind, rows []domain.NormalizedRecord) domain.UpsertReport {
	if len(rows) == 0 {
		return domain.UpsertReport{}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		report, err := c.upsertOnce(ctx, kind, rows)
		if err == nil {
			return report
		}
		lastErr = err

		if !domain.IsTransient(err) || ctx.Err() != nil {
			break
		}
		c.logger.Warn("transient persistence failure, retrying batch",
			zap.String("data_type", string(kind)),
			zap.Int("attempt", attempt),
			zap.Int("rows", len(rows)),
			zap.Error(err))
		if attempt < c.maxAttempts && !c.sleep(ctx) {
			break
		}
	}

	if domain.IsTransient(lastErr) || ctx.Err() != nil {
		// Retries exhausted or caller gone: nothing was written
		c.logger.Error("persistence failed after retries",
			zap.String("data_type", string(kind)),
			zap.Int("rows", len(rows)),
			zap.Error(lastErr))
		return failAll(rows, lastErr)
	}

	// Non-transient batch failure: some row violates a store constraint the
	// validator did not catch. Fall back to per-row writes so only the
	// offending rows fail.
	c.logger.Warn("batch upsert failed, degrading to per-row writes",
		zap.String("data_type", string(kind)),
		zap.Int("rows", len(rows)),
		zap.Error(lastErr))
	return c.persistPerRow(ctx, kind, rows)
}

func (c *Coordinator) upsertOnce(ctx context.Context, kind domain.DataKind, rows []domain.NormalizedRecord) (domain.UpsertReport, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.sink.Upsert(attemptCtx, kind, rows)
}

func (c *Coordinator) persistPerRow(ctx context.Context, kind domain.DataKind, rows []domain.NormalizedRecord) domain.UpsertReport {
	report := domain.UpsertReport{}
	for i, row := range rows {
		if ctx.Err() != nil {
			report.Failed += len(rows) - i
			report.RowErrors = append(report.RowErrors, domain.RowError{Index: i, Err: ctx.Err()})
			break
		}
		_, err := c.upsertOnce(ctx, kind, []domain.NormalizedRecord{row})
		if err != nil {
			report.Failed++
			report.RowErrors = append(report.RowErrors, domain.RowError{Index: i, Err: err})
			c.logger.Error("row upsert failed",
				zap.String("data_type", string(kind)),
				zap.Int("index", i),
				zap.Any("business_key", row.BusinessKey()),
				zap.Error(err))
			continue
		}
		report.Processed++
	}
	return report
}

// sleep waits one backoff interval, returning false when the caller's
// context expires first
func (c *Coordinator) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func failAll(rows []domain.NormalizedRecord, err error) domain.UpsertReport {
	report := domain.UpsertReport{Failed: len(rows)}
	if err != nil {
		report.RowErrors = append(report.RowErrors, domain.RowError{Index: 0, Err: err})
	}
	return report
}
