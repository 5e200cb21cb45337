package callcache

import (
	"context"

	"github.com/goliatone/go-callcache/cache"
)

type scopeContextKey struct{}

// WithScope attaches the active scope to the context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext returns the scope attached by WithScope.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok && s != nil
}

// Call runs target name through the scope carried by ctx. Without an open
// scope that knows name, fn is called directly and nothing is recorded.
func Call(ctx context.Context, name string, fn Func, args []any, kwargs cache.Kwargs) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s, ok := ScopeFromContext(ctx); ok && !s.Ended() && s.has(name) {
		return s.Call(ctx, name, args, kwargs)
	}
	if fn == nil {
		return nil, cache.ErrNilTarget
	}
	return fn(ctx, args, kwargs)
}

func (s *Scope) has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.targets[name]
	return ok
}
