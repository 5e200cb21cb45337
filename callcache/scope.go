package callcache

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/pkg/metrics"
	"github.com/goliatone/go-callcache/report"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Target names a function to intercept.
type Target struct {
	Name string
	Fn   Func
}

// NewTarget is a shorthand for Target{Name: name, Fn: fn}.
func NewTarget(name string, fn Func) Target {
	return Target{Name: name, Fn: fn}
}

// patch is a function variable replaced by Install.
type patch struct {
	name    string
	restore func() error
}

// Scope intercepts a set of targets between Begin and End. Each scope owns
// its store, so results and statistics never leak between scopes.
type Scope struct {
	id          string
	opts        options
	logger      *zap.Logger
	store       cache.Store
	interceptor *Interceptor
	collector   *metrics.Collector

	mu      sync.RWMutex
	targets map[string]Func
	patches []patch
	ended   bool
}

// Begin opens a scope intercepting targets.
func Begin(targets []Target, opts ...Option) (*Scope, error) {
	o := buildOptions(opts)
	id := uuid.NewString()
	store := o.newStore()

	s := &Scope{
		id:          id,
		opts:        o,
		logger:      o.logger.With(zap.String("scope", id)),
		store:       store,
		interceptor: newInterceptor(store, o),
		targets:     make(map[string]Func, len(targets)),
	}

	if err := s.Include(targets...); err != nil {
		return nil, err
	}

	if o.registerer != nil {
		s.collector = metrics.NewCollector(o.namespace, s.Stats, prometheus.Labels{"scope": id})
		if err := o.registerer.Register(s.collector); err != nil {
			return nil, fmt.Errorf("callcache: register metrics: %w", err)
		}
	}

	s.logger.Info("call cache scope started", zap.Int("targets", len(targets)), zap.Bool("enabled", o.enabled))
	return s, nil
}

// ID returns the unique id of the scope.
func (s *Scope) ID() string {
	return s.id
}

// Include adds targets to an open scope.
func (s *Scope) Include(targets ...Target) error {
	for _, t := range targets {
		if err := s.register(t.Name, t.Fn); err != nil {
			return err
		}
	}
	return nil
}

// Bind registers fn under name and returns its intercepted form.
func (s *Scope) Bind(name string, fn Func) (Func, error) {
	if err := s.register(name, fn); err != nil {
		return nil, err
	}
	return s.Func(name), nil
}

func (s *Scope) register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return cache.ErrScopeClosed
	}
	if _, exists := s.targets[name]; exists {
		return fmt.Errorf("%w: %s", cache.ErrDuplicateTarget, name)
	}

	s.targets[name] = fn
	s.store.Register(name)
	s.logger.Debug("target registered", zap.String("target", name))
	return nil
}

// Install registers the function held by *slot under name and replaces it
// with its intercepted form until End restores it. Every caller going
// through the variable, recursive calls included, is intercepted.
func (s *Scope) Install(name string, slot *Func) error {
	if slot == nil || *slot == nil {
		return fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	original := *slot
	wrapped, err := s.Bind(name, original)
	if err != nil {
		return err
	}
	*slot = wrapped
	s.addPatch(name, func() error { return restoreSlot(name, slot, original, wrapped) })
	return nil
}

func (s *Scope) addPatch(name string, restore func() error) {
	s.mu.Lock()
	s.patches = append(s.patches, patch{name: name, restore: restore})
	s.mu.Unlock()
}

// restoreSlot puts original back into ptr. It reports an error when ptr no
// longer holds the installed function, but restores it regardless.
// Closures created from the same function literal share their code pointer,
// so replacing the installed function with a sibling closure goes unnoticed.
func restoreSlot[F any](name string, ptr *F, original, installed F) error {
	var err error
	if funcPointer(*ptr) != funcPointer(installed) {
		err = &cache.ScopeRestorationError{Target: name, Reason: "function variable was reassigned while the scope was active"}
	}
	*ptr = original
	return err
}

func funcPointer(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return 0
	}
	return v.Pointer()
}

// Func returns a function that calls target name through the scope.
func (s *Scope) Func(name string) Func {
	return func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
		return s.Call(ctx, name, args, kwargs)
	}
}

// Call intercepts one call of target name. Once the scope ended, calls go
// straight to the original function and are not recorded.
func (s *Scope) Call(ctx context.Context, name string, args []any, kwargs cache.Kwargs) (any, error) {
	s.mu.RLock()
	fn, ok := s.targets[name]
	ended := s.ended
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", cache.ErrUnknownTarget, name)
	}
	if ended {
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(ctx, args, kwargs)
	}
	return s.interceptor.Intercept(ctx, name, fn, args, kwargs)
}

// Stats returns a snapshot of the statistics of every target.
func (s *Scope) Stats() map[string]cache.Stats {
	return s.store.Snapshot()
}

// Targets lists the registered targets in registration order.
func (s *Scope) Targets() []string {
	return s.store.Targets()
}

// Report builds the report of the scope.
func (s *Scope) Report() report.Report {
	return report.Build(s.store.Targets(), s.store.Snapshot())
}

// Ended reports whether End was called.
func (s *Scope) Ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ended
}

// End restores every installed function variable, then emits the report.
// Calling End again does nothing. Restoration and rendering failures are
// combined in the returned error.
func (s *Scope) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	patches := s.patches
	s.patches = nil
	s.mu.Unlock()

	var errs error
	for i := len(patches) - 1; i >= 0; i-- {
		if err := patches[i].restore(); err != nil {
			s.logger.Warn("function variable changed while scope was active",
				zap.String("target", patches[i].name),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}

	if s.collector != nil {
		s.opts.registerer.Unregister(s.collector)
	}

	if s.opts.renderer != nil {
		if err := s.opts.renderer.Render(s.opts.output, s.Report()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("callcache: render report: %w", err))
		}
	}

	s.logger.Info("call cache scope ended", zap.Int("targets", len(s.store.Targets())))
	return errs
}

// Run opens a scope, passes it to fn through ctx and as an argument, and
// ends it when fn returns or panics.
func Run(ctx context.Context, targets []Target, fn func(ctx context.Context, s *Scope) error, opts ...Option) (err error) {
	s, err := Begin(targets, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.End())
	}()
	return fn(WithScope(ctx, s), s)
}
