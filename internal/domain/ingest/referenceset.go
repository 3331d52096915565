package ingest

import (
	"context"
	"sort"
	"time"
)

// ReferenceSet is an immutable snapshot of the valid reference codes plus
// the instant it was fetched. A published set is never mutated; a refresh
// builds a new one and swaps the cache pointer.
type ReferenceSet struct {
	codes     map[string]struct{}
	fetchedAt time.Time
}

// NewReferenceSet builds a set from codes. Empty codes are dropped;
// comparison is case-sensitive.
func NewReferenceSet(codes []string, fetchedAt time.Time) *ReferenceSet {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c != "" {
			m[c] = struct{}{}
		}
	}
	return &ReferenceSet{codes: m, fetchedAt: fetchedAt}
}

// Contains reports whether code is a known-valid reference
func (s *ReferenceSet) Contains(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of codes in the set
func (s *ReferenceSet) Len() int {
	return len(s.codes)
}

// FetchedAt returns the instant the set was loaded from the source
func (s *ReferenceSet) FetchedAt() time.Time {
	return s.fetchedAt
}

// Age returns how long ago the set was fetched
func (s *ReferenceSet) Age(now time.Time) time.Duration {
	return now.Sub(s.fetchedAt)
}

// Codes returns the codes in sorted order, for logging and diagnostics
func (s *ReferenceSet) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ReferenceResolver supplies the current reference set to the admission
// pipeline. Implemented by the warehouse-code cache.
type ReferenceResolver interface {
	// Resolve returns the current reference set, refreshing from the source
	// when stale or when forceRefresh is set. Fails with ErrSourceUnavailable
	// only when the source is down and no prior set exists.
	Resolve(ctx context.Context, forceRefresh bool) (*ReferenceSet, error)

	// Invalidate marks the cached set stale so the next Resolve refreshes
	Invalidate()
}
