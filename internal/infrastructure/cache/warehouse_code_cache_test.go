package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forecast/ingestion/internal/domain/ingest"
	"github.com/forecast/ingestion/internal/domain/masterdata"
)

// fakeWarehouseRepo scripts ListActiveCodes responses and counts calls
type fakeWarehouseRepo struct {
	mu    sync.Mutex
	codes []string
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (r *fakeWarehouseRepo) ListActiveCodes(ctx context.Context) ([]string, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out, nil
}

func (r *fakeWarehouseRepo) FindByCode(ctx context.Context, code string) (*masterdata.Warehouse, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeWarehouseRepo) set(codes []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = codes
	r.err = err
}

func TestResolveCachesWithinStalenessBoundary(t *testing.T) {
	repo := &fakeWarehouseRepo{codes: []string{"WH-01", "WH-02"}}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Second, zap.NewNop())

	first, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Len())

	second, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), repo.calls.Load())
}

func TestResolveForceRefreshBypassesCache(t *testing.T) {
	repo := &fakeWarehouseRepo{codes: []string{"WH-01"}}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Second, zap.NewNop())

	_, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)

	repo.set([]string{"WH-01", "WH-02"}, nil)
	refreshed, err := cache.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.Len())
	assert.Equal(t, int64(2), repo.calls.Load())
}

func TestResolveInvalidateForcesNextRefresh(t *testing.T) {
	repo := &fakeWarehouseRepo{codes: []string{"WH-01"}}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Second, zap.NewNop())

	_, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)

	cache.Invalidate()
	repo.set([]string{"WH-01", "WH-02"}, nil)

	refreshed, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.Len())
	assert.Equal(t, int64(2), repo.calls.Load())
}

// gatedWarehouseRepo blocks its first ListActiveCodes call until released,
// so a test can act while a fetch is in flight
type gatedWarehouseRepo struct {
	mu      sync.Mutex
	batches [][]string
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
}

func (r *gatedWarehouseRepo) ListActiveCodes(ctx context.Context) ([]string, error) {
	n := r.calls.Add(1)
	if n == 1 {
		close(r.started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.release:
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := int(n) - 1
	if idx >= len(r.batches) {
		idx = len(r.batches) - 1
	}
	return r.batches[idx], nil
}

func (r *gatedWarehouseRepo) FindByCode(ctx context.Context, code string) (*masterdata.Warehouse, error) {
	return nil, errors.New("not implemented")
}

func TestResolveInvalidateDuringInFlightFetch(t *testing.T) {
	repo := &gatedWarehouseRepo{
		batches: [][]string{{"WH-01"}, {"WH-01", "WH-02"}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Minute, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := cache.Resolve(context.Background(), false)
		done <- err
	}()

	// A warehouse batch lands while the first fetch is still running
	<-repo.started
	cache.Invalidate()
	close(repo.release)
	require.NoError(t, <-done)

	// The completed fetch predates the invalidation, so the next resolve
	// must go back to the source and pick up the new warehouse
	refreshed, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.Len())
	assert.Equal(t, int64(2), repo.calls.Load())
}

func TestResolveGracefulDegradation(t *testing.T) {
	repo := &fakeWarehouseRepo{codes: []string{"WH-01"}}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Second, zap.NewNop())

	fresh, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)

	// Second fetch fails; the stale set is served instead
	repo.set(nil, errors.New("source down"))
	stale, err := cache.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Same(t, fresh, stale)
	assert.Equal(t, int64(1), cache.StaleServes())
}

func TestResolveColdCacheFailsFast(t *testing.T) {
	repo := &fakeWarehouseRepo{err: errors.New("source down")}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Second, zap.NewNop())

	_, err := cache.Resolve(context.Background(), false)
	assert.ErrorIs(t, err, ingest.ErrSourceUnavailable)
	assert.Equal(t, int64(0), cache.StaleServes())
}

func TestResolveSingleFlightUnderConcurrency(t *testing.T) {
	repo := &fakeWarehouseRepo{codes: []string{"WH-01"}, delay: 50 * time.Millisecond}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Second, zap.NewNop())

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*ingest.ReferenceSet, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			set, err := cache.Resolve(context.Background(), false)
			assert.NoError(t, err)
			results[i] = set
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), repo.calls.Load(), "concurrent cold-cache demand collapses into one fetch")
	for _, set := range results {
		assert.Same(t, results[0], set, "all concurrent callers reuse the same refresh result")
	}
}

func TestResolveCallerCancellationDoesNotPoisonRefresh(t *testing.T) {
	repo := &fakeWarehouseRepo{codes: []string{"WH-01"}, delay: 50 * time.Millisecond}
	cache := NewWarehouseCodeCache(repo, time.Minute, time.Second, zap.NewNop())

	cancelled, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Resolve(cancelled, false)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The shared fetch keeps running and lands the set for the next caller
	set, err := cache.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, int64(1), repo.calls.Load())
}
