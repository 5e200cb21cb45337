package callcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-callcache/cache"
)

// Event describes one intercepted call.
type Event struct {
	Target string

	// Key is zero for bypassed calls and for calls whose arguments could
	// not be normalized.
	Key cache.CallKey

	Result  any
	Err     error
	Elapsed time.Duration

	// KeyErr holds the normalization failure of a miss that was never cacheable.
	KeyErr error
}

// Hook defines a call hook with optional priority and condition
type Hook struct {
	// Priority determines execution order (higher values execute first)
	Priority int

	// Condition optionally filters hook execution
	// If nil, hook always executes
	Condition func(ctx context.Context, target string) bool

	// Set exactly one of: OnHit, OnMiss, OnBypass
	OnHit    func(ctx context.Context, ev Event)
	OnMiss   func(ctx context.Context, ev Event)
	OnBypass func(ctx context.Context, ev Event)
}

// Hooks contains all registered call event hooks
type Hooks struct {
	mu       sync.RWMutex
	onHit    []Hook
	onMiss   []Hook
	onBypass []Hook
}

// NewHooks creates a new Hooks instance
func NewHooks() *Hooks {
	return &Hooks{}
}

// HookOption configures a hook
type HookOption func(*Hook)

// WithPriority sets the hook execution priority (higher values execute first)
func WithPriority(priority int) HookOption {
	return func(h *Hook) {
		h.Priority = priority
	}
}

// WithCondition sets a condition that must be true for the hook to execute
func WithCondition(condition func(ctx context.Context, target string) bool) HookOption {
	return func(h *Hook) {
		h.Condition = condition
	}
}

// AddOnHit registers a hook that executes when a call is served from the cache
func (h *Hooks) AddOnHit(fn func(ctx context.Context, ev Event), opts ...HookOption) {
	h.add(&h.onHit, Hook{OnHit: fn}, opts)
}

// AddOnMiss registers a hook that executes after a call ran the target and was counted
func (h *Hooks) AddOnMiss(fn func(ctx context.Context, ev Event), opts ...HookOption) {
	h.add(&h.onMiss, Hook{OnMiss: fn}, opts)
}

// AddOnBypass registers a hook that executes when a call skipped the cache entirely
func (h *Hooks) AddOnBypass(fn func(ctx context.Context, ev Event), opts ...HookOption) {
	h.add(&h.onBypass, Hook{OnBypass: fn}, opts)
}

func (h *Hooks) add(list *[]Hook, hook Hook, opts []HookOption) {
	for _, opt := range opts {
		opt(&hook)
	}
	h.mu.Lock()
	*list = append(*list, hook)
	h.mu.Unlock()
}

func (h *Hooks) invokeOnHit(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	h.invokeHooks(ctx, ev, h.snapshot(&h.onHit), func(hook Hook) { hook.OnHit(ctx, ev) })
}

func (h *Hooks) invokeOnMiss(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	h.invokeHooks(ctx, ev, h.snapshot(&h.onMiss), func(hook Hook) { hook.OnMiss(ctx, ev) })
}

func (h *Hooks) invokeOnBypass(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	h.invokeHooks(ctx, ev, h.snapshot(&h.onBypass), func(hook Hook) { hook.OnBypass(ctx, ev) })
}

func (h *Hooks) snapshot(list *[]Hook) []Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(*list) == 0 {
		return nil
	}
	out := make([]Hook, len(*list))
	copy(out, *list)
	return out
}

// invokeHooks executes hooks in priority order (highest priority first)
func (h *Hooks) invokeHooks(ctx context.Context, ev Event, hooks []Hook, execute func(Hook)) {
	if len(hooks) == 0 {
		return
	}

	if len(hooks) > 1 {
		sort.SliceStable(hooks, func(i, j int) bool {
			return hooks[i].Priority > hooks[j].Priority
		})
	}

	for _, hook := range hooks {
		if hook.Condition == nil || hook.Condition(ctx, ev.Target) {
			execute(hook)
		}
	}
}
