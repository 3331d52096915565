package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/forecast/ingestion/internal/domain/ingest"
	"github.com/forecast/ingestion/internal/domain/masterdata"
)

// WarehouseCodeCache caches the set of valid warehouse codes with a
// staleness boundary. Concurrent refresh demand collapses into one source
// query; when the source fails and a last-good set exists, that set is
// served stale rather than failing the caller.
type WarehouseCodeCache struct {
	repo         masterdata.WarehouseRepository
	staleness    time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger

	mu          sync.RWMutex
	current     *ingest.ReferenceSet
	invalidated bool
	generation  uint64

	group       singleflight.Group
	staleServes atomic.Int64
}

// NewWarehouseCodeCache creates a cache over the warehouse repository.
// Non-positive durations fall back to 5 minutes staleness and 5 seconds
// fetch timeout.
func NewWarehouseCodeCache(repo masterdata.WarehouseRepository, staleness, fetchTimeout time.Duration, logger *zap.Logger) *WarehouseCodeCache {
	if staleness <= 0 {
		staleness = 5 * time.Minute
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	return &WarehouseCodeCache{
		repo:         repo,
		staleness:    staleness,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Resolve returns the current reference set. A fresh cached set is returned
// without touching the source; a stale or missing set triggers exactly one
// source query shared by all concurrent callers. Callers during an in-flight
// refresh wait for it and reuse its result rather than racing a second
// fetch.
func (c *WarehouseCodeCache) Resolve(ctx context.Context, forceRefresh bool) (*ingest.ReferenceSet, error) {
	c.mu.RLock()
	current := c.current
	invalidated := c.invalidated
	c.mu.RUnlock()

	if !forceRefresh && !invalidated && current != nil && current.Age(time.Now()) < c.staleness {
		return current, nil
	}

	// The fetch runs on a detached context so one cancelled caller cannot
	// poison the refresh other callers are waiting on
	ch := c.group.DoChan("warehouse-codes", func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(*ingest.ReferenceSet), nil
		}
		if current != nil {
			c.staleServes.Add(1)
			c.logger.Warn("reference source fetch failed, serving stale set",
				zap.Duration("age", current.Age(time.Now())),
				zap.Int("codes", current.Len()),
				zap.Error(res.Err))
			return current, nil
		}
		c.logger.Error("reference source fetch failed with no cached fallback", zap.Error(res.Err))
		return nil, ingest.ErrSourceUnavailable
	}
}

// Invalidate marks the cached set stale. The set stays available as a
// degradation fallback until a refresh replaces it. Bumping the generation
// keeps the mark effective against a fetch that started before this call.
func (c *WarehouseCodeCache) Invalidate() {
	c.mu.Lock()
	c.invalidated = true
	c.generation++
	c.mu.Unlock()
}

// StaleServes reports how many times a stale set was served after a failed
// fetch, for health reporting
func (c *WarehouseCodeCache) StaleServes() int64 {
	return c.staleServes.Load()
}

func (c *WarehouseCodeCache) fetch(ctx context.Context) (*ingest.ReferenceSet, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	c.mu.RLock()
	startGen := c.generation
	c.mu.RUnlock()

	codes, err := c.repo.ListActiveCodes(fetchCtx)
	if err != nil {
		return nil, err
	}
	set := ingest.NewReferenceSet(codes, time.Now())

	// An invalidation that landed during the query means this set may
	// predate it, so the stale mark must survive for the next resolve
	c.mu.Lock()
	c.current = set
	if c.generation == startGen {
		c.invalidated = false
	}
	c.mu.Unlock()

	c.logger.Debug("reference set refreshed", zap.Int("codes", set.Len()))
	return set, nil
}

var _ ingest.ReferenceResolver = (*WarehouseCodeCache)(nil)
