package cache

import (
	"context"
	"sync"
	"time"
)

// CachedResponse is a stored batch outcome replayed to duplicate deliveries
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseStore keeps batch outcomes keyed by the agent's idempotency key,
// so a redelivered batch gets its original response instead of being
// processed twice
type ResponseStore interface {
	// Get returns the stored response for key, if any
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	// Put stores a response under key with a TTL
	Put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error
	// Close releases store resources
	Close() error
}

// responseEntry is a stored response with expiration
type responseEntry struct {
	resp      *CachedResponse
	expiresAt time.Time
}

// InMemoryResponseStore implements ResponseStore using an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemoryResponseStore struct {
	mu        sync.RWMutex
	entries   map[string]responseEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryResponseStore creates a new in-memory response store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryResponseStore() *InMemoryResponseStore {
	store := &InMemoryResponseStore{
		entries:  make(map[string]responseEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the stored response for key, if present and unexpired
func (s *InMemoryResponseStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.resp, true, nil
}

// Put stores a response under key with a TTL
func (s *InMemoryResponseStore) Put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = responseEntry{
		resp:      resp,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryResponseStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryResponseStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryResponseStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryResponseStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ ResponseStore = (*InMemoryResponseStore)(nil)
