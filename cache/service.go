package cache

import (
	"fmt"
	"time"
)

// Store keeps cached results and statistics per target.
// Entries are never evicted: a store grows until it is dropped.
type Store interface {
	// Register creates empty entries and stats for target. It returns false
	// when the target was already registered.
	Register(target string) bool

	// Lookup returns the stored result for key.
	Lookup(target string, key CallKey) (any, bool)

	// Store saves result under key unless an entry already exists.
	// The first write wins; later writes return false and change nothing.
	Store(target string, key CallKey, result any) bool

	// RecordHit counts one call served from the cache.
	RecordHit(target string)

	// RecordMiss counts one call that executed the target.
	RecordMiss(target string, elapsed time.Duration)

	Stats(target string) (Stats, bool)
	Snapshot() map[string]Stats

	// Targets lists registered targets in registration order.
	Targets() []string

	// Len returns how many entries target holds.
	Len(target string) int
}

// As is a type-safe conversion for values coming out of a Store.
// A nil result converts to the zero value of T instead of panicking.
func As[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	result, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrInvalidResultType, v, zero)
	}
	return result, nil
}

// LookupAs is a type-safe wrapper around Store.Lookup.
func LookupAs[T any](s Store, target string, key CallKey) (T, bool, error) {
	v, ok := s.Lookup(target, key)
	if !ok {
		var zero T
		return zero, false, nil
	}
	result, err := As[T](v)
	return result, true, err
}
