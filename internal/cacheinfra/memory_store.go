package cacheinfra

import (
	"sync"
	"time"

	"github.com/goliatone/go-callcache/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// targetState holds the entries and counters of one target.
type targetState struct {
	entries *xsync.MapOf[cache.CallKey, any]

	mu    sync.Mutex
	stats cache.Stats
}

// MemoryStore is an unbounded in-memory cache.Store.
// Entries live until the store is dropped; there is no eviction and no TTL.
type MemoryStore struct {
	targets *xsync.MapOf[string, *targetState]

	mu    sync.Mutex
	order []string
}

var _ cache.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		targets: xsync.NewMapOf[string, *targetState](),
	}
}

// Register implements cache.Store.Register.
func (s *MemoryStore) Register(target string) bool {
	_, loaded := s.state(target)
	return !loaded
}

// state returns the state of target, registering it on first use.
func (s *MemoryStore) state(target string) (*targetState, bool) {
	st, loaded := s.targets.LoadOrCompute(target, func() *targetState {
		return &targetState{entries: xsync.NewMapOf[cache.CallKey, any]()}
	})
	if !loaded {
		s.mu.Lock()
		s.order = append(s.order, target)
		s.mu.Unlock()
	}
	return st, loaded
}

// Lookup implements cache.Store.Lookup.
func (s *MemoryStore) Lookup(target string, key cache.CallKey) (any, bool) {
	st, ok := s.targets.Load(target)
	if !ok {
		return nil, false
	}
	return st.entries.Load(key)
}

// Store implements cache.Store.Store. An existing entry is never replaced.
func (s *MemoryStore) Store(target string, key cache.CallKey, result any) bool {
	st, _ := s.state(target)
	_, loaded := st.entries.LoadOrStore(key, result)
	return !loaded
}

// RecordHit implements cache.Store.RecordHit.
func (s *MemoryStore) RecordHit(target string) {
	st, _ := s.state(target)
	st.mu.Lock()
	st.stats.Calls++
	st.stats.Hits++
	st.mu.Unlock()
}

// RecordMiss implements cache.Store.RecordMiss.
func (s *MemoryStore) RecordMiss(target string, elapsed time.Duration) {
	st, _ := s.state(target)
	st.mu.Lock()
	st.stats.Calls++
	st.stats.Misses++
	st.stats.TotalTime += elapsed
	st.mu.Unlock()
}

// Stats implements cache.Store.Stats.
func (s *MemoryStore) Stats(target string) (cache.Stats, bool) {
	st, ok := s.targets.Load(target)
	if !ok {
		return cache.Stats{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stats, true
}

// Snapshot implements cache.Store.Snapshot.
func (s *MemoryStore) Snapshot() map[string]cache.Stats {
	out := make(map[string]cache.Stats, s.targets.Size())
	s.targets.Range(func(name string, st *targetState) bool {
		st.mu.Lock()
		out[name] = st.stats
		st.mu.Unlock()
		return true
	})
	return out
}

// Targets implements cache.Store.Targets.
func (s *MemoryStore) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len implements cache.Store.Len.
func (s *MemoryStore) Len(target string) int {
	st, ok := s.targets.Load(target)
	if !ok {
		return 0
	}
	return st.entries.Size()
}
