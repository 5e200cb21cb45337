package callcache

import (
	"context"
	"time"

	"github.com/goliatone/go-callcache/cache"
	"go.uber.org/zap"
)

// Func is the dynamic form of a target: positional arguments, keyword
// arguments, one result and an error.
type Func func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error)

// Interceptor decides for each call whether to serve a stored result,
// execute and store, or execute without caching.
type Interceptor struct {
	store      cache.Store
	normalizer cache.KeyNormalizer
	hooks      *Hooks
	logger     *zap.Logger
	enabled    bool
}

// NewInterceptor creates an interceptor over store.
func NewInterceptor(store cache.Store, opts ...Option) *Interceptor {
	o := buildOptions(opts)
	return newInterceptor(store, o)
}

func newInterceptor(store cache.Store, o options) *Interceptor {
	return &Interceptor{
		store:      store,
		normalizer: o.normalizer,
		hooks:      o.hooks,
		logger:     o.logger,
		enabled:    o.enabled,
	}
}

// Intercept runs one call of target through the cache.
//
//   - disabled interceptor: fn runs, nothing is recorded
//   - a top level argument is a function: fn runs, nothing is recorded
//   - arguments cannot be normalized: fn runs and counts as a miss, nothing is stored
//   - stored result exists: it is returned and counts as a hit
//   - otherwise fn runs, counts as a miss, and its result is stored if fn returned no error
//
// Errors and panics from fn reach the caller unchanged.
func (i *Interceptor) Intercept(ctx context.Context, target string, fn Func, args []any, kwargs cache.Kwargs) (any, error) {
	if fn == nil {
		return nil, cache.ErrNilTarget
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !i.enabled {
		return fn(ctx, args, kwargs)
	}

	if cache.HasCallable(args, kwargs) {
		i.logger.Debug("callable argument, bypassing cache", zap.String("target", target))
		result, err := fn(ctx, args, kwargs)
		i.hooks.invokeOnBypass(ctx, Event{Target: target, Result: result, Err: err})
		return result, err
	}

	key, keyErr := i.normalizer.NormalizeCall(args, kwargs)
	if keyErr != nil {
		if !cache.IsUnhashable(keyErr) {
			return nil, keyErr
		}
		i.logger.Warn("arguments cannot be normalized, executing uncached",
			zap.String("target", target),
			zap.Error(keyErr),
		)
		start := time.Now()
		result, err := fn(ctx, args, kwargs)
		elapsed := time.Since(start)
		i.store.RecordMiss(target, elapsed)
		i.hooks.invokeOnMiss(ctx, Event{Target: target, Result: result, Err: err, Elapsed: elapsed, KeyErr: keyErr})
		return result, err
	}

	if result, ok := i.store.Lookup(target, key); ok {
		i.store.RecordHit(target)
		i.logger.Debug("cache hit", zap.String("target", target), zap.String("key", key.Short()))
		i.hooks.invokeOnHit(ctx, Event{Target: target, Key: key, Result: result})
		return result, nil
	}

	start := time.Now()
	result, err := fn(ctx, args, kwargs)
	elapsed := time.Since(start)

	if err == nil {
		i.store.Store(target, key, result)
	}
	i.store.RecordMiss(target, elapsed)
	i.logger.Debug("cache miss",
		zap.String("target", target),
		zap.String("key", key.Short()),
		zap.Duration("elapsed", elapsed),
		zap.Bool("stored", err == nil),
	)
	i.hooks.invokeOnMiss(ctx, Event{Target: target, Key: key, Result: result, Err: err, Elapsed: elapsed})
	return result, err
}

// Store returns the store the interceptor records into.
func (i *Interceptor) Store() cache.Store {
	return i.store
}
