// Package cache provides the building blocks of call memoization: canonical
// call keys, the store contract and the configuration.
//
// # Overview
//
// This package exports:
//
//   - CallKey: the canonical, comparable form of a call's arguments
//   - KeyNormalizer: builds CallKeys from positional and keyword arguments
//   - Store: per-target cached results and statistics
//   - Config: options loaded with viper and validated with ozzo-validation
//
// The callcache package drives these pieces when intercepting calls.
//
// # Basic Usage
//
//	key, err := cache.NormalizeCall([]any{2, 3}, cache.Kwargs{"round": true})
//	if cache.IsUnhashable(err) {
//		// the call runs uncached
//	}
//
// # Key Normalization Strategy
//
// The default normalizer walks values with reflection:
//
//   - Scalars: encoded with their Go type, so int(1) and int64(1) differ
//   - Slices and arrays: ordered sequences, a slice equals an array with the same elements
//   - Maps: pairs sorted by the canonical form of the key
//   - map[K]struct{}: sets, sorted by element
//   - Structs: type name plus every field, unexported ones included
//   - Pointers: dereferenced, cycles are rejected
//   - Keyer implementations: their CallKey() result is used as is
//
// Functions, channels and unsafe pointers have no value semantics and fail
// with *UnhashableInputError, as do values nested deeper than MaxDepth.
//
// # Important Warnings for Pointer Arguments
//
// A key captures the pointee at call time. Mutating a value after it was
// used as an argument does not update entries that were stored for it.
//
// # See Also
//
// For interception, scopes and decorators see the callcache package.
// For the default in-memory Store see internal/cacheinfra.
package cache
