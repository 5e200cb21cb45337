package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kwargs carries keyword arguments for a call. Go has no native keyword
// arguments, so callers that need them pass an explicit map.
type Kwargs map[string]any

// Keyer lets a type supply its own canonical key segment. Implement it for
// types whose equality is not captured by their fields (for example types
// holding caches or handles) but which still have value semantics.
type Keyer interface {
	CallKey() string
}

// CallKey is the canonical, comparable representation of a call's arguments.
// The zero value is not a valid key.
type CallKey struct {
	canonical string
	sum       uint64
}

func newCallKey(canonical string) CallKey {
	return CallKey{canonical: canonical, sum: xxhash.Sum64String(canonical)}
}

// String returns the canonical encoding the key was built from.
func (k CallKey) String() string {
	return k.canonical
}

// Fingerprint returns the xxhash of the canonical encoding.
// It is meant for logs and labels, equality is always decided on the full key.
func (k CallKey) Fingerprint() uint64 {
	return k.sum
}

// Short returns the fingerprint as a fixed width hex string.
func (k CallKey) Short() string {
	return fmt.Sprintf("%016x", k.sum)
}

// IsZero reports whether the key was never built.
func (k CallKey) IsZero() bool {
	return k.canonical == "" && k.sum == 0
}
