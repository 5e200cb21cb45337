package callcache

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Decorator caches the methods of one object. It keeps its own store, so
// every decorated object has separate entries and statistics per method.
// Unlike a Scope it has no end: it lives as long as the object it wraps.
type Decorator struct {
	id          string
	name        string
	opts        options
	logger      *zap.Logger
	store       cache.Store
	interceptor *Interceptor

	mu      sync.RWMutex
	methods map[string]method
}

// method is a bound method. check is set for methods bound by reflection and
// rejects arguments the method cannot take.
type method struct {
	fn    Func
	check func(args []any, kwargs cache.Kwargs) error
}

// NewDecorator creates a decorator. name identifies the decorated object in logs.
func NewDecorator(name string, opts ...Option) *Decorator {
	o := buildOptions(opts)
	store := o.newStore()
	id := uuid.NewString()

	return &Decorator{
		id:          id,
		name:        name,
		opts:        o,
		logger:      o.logger.With(zap.String("decorator", name), zap.String("id", id)),
		store:       store,
		interceptor: newInterceptor(store, o),
		methods:     make(map[string]method),
	}
}

// ID returns the unique id of the decorator.
func (d *Decorator) ID() string {
	return d.id
}

// Name returns the name given to NewDecorator.
func (d *Decorator) Name() string {
	return d.name
}

// Bind registers fn as method name and returns its intercepted form.
func (d *Decorator) Bind(name string, fn Func) (Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	if err := d.register(map[string]method{name: {fn: fn}}, []string{name}); err != nil {
		return nil, err
	}
	return d.caller(name), nil
}

// Method is an alias of Bind.
func (d *Decorator) Method(name string, fn Func) (Func, error) {
	return d.Bind(name, fn)
}

// Methods binds the named methods of receiver by reflection. Bound methods
// may take a leading context.Context, must not be variadic and must return
// either (R) or (R, error). They take positional arguments only.
// Either every name is bound or none is.
func (d *Decorator) Methods(receiver any, names ...string) (map[string]Func, error) {
	rv := reflect.ValueOf(receiver)
	if !rv.IsValid() {
		return nil, cache.ErrNilTarget
	}

	resolved := make(map[string]method, len(names))
	for _, name := range names {
		if _, dup := resolved[name]; dup {
			return nil, fmt.Errorf("%w: %s", cache.ErrDuplicateTarget, name)
		}

		m := rv.MethodByName(name)
		if !m.IsValid() {
			return nil, fmt.Errorf("%w: %s has no method %s", cache.ErrUnknownTarget, rv.Type(), name)
		}

		sig, err := newMethodSignature(name, m.Type())
		if err != nil {
			return nil, err
		}
		resolved[name] = method{fn: sig.bind(m), check: sig.check}
	}

	if err := d.register(resolved, names); err != nil {
		return nil, err
	}

	out := make(map[string]Func, len(names))
	for _, name := range names {
		out[name] = d.caller(name)
	}
	return out, nil
}

// register adds every method in order, or none when a name is already taken.
func (d *Decorator) register(methods map[string]method, order []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, name := range order {
		if _, exists := d.methods[name]; exists {
			return fmt.Errorf("%w: %s", cache.ErrDuplicateTarget, name)
		}
	}
	for _, name := range order {
		d.methods[name] = methods[name]
		d.store.Register(name)
		d.logger.Debug("method registered", zap.String("method", name))
	}
	return nil
}

func (d *Decorator) caller(name string) Func {
	return func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
		return d.Call(ctx, name, args, kwargs)
	}
}

// Call intercepts one call of method name. Arguments a reflected method
// cannot take are rejected before interception and are not recorded.
func (d *Decorator) Call(ctx context.Context, name string, args []any, kwargs cache.Kwargs) (any, error) {
	d.mu.RLock()
	m, ok := d.methods[name]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", cache.ErrUnknownTarget, name)
	}
	if m.check != nil {
		if err := m.check(args, kwargs); err != nil {
			return nil, err
		}
	}
	return d.interceptor.Intercept(ctx, name, m.fn, args, kwargs)
}

// Stats returns a snapshot of the statistics of every method.
func (d *Decorator) Stats() map[string]cache.Stats {
	return d.store.Snapshot()
}

// Report builds the report of the decorated methods.
func (d *Decorator) Report() report.Report {
	return report.Build(d.store.Targets(), d.store.Snapshot())
}

// WriteReport renders the report with the configured renderer.
// It does nothing when reporting is disabled.
func (d *Decorator) WriteReport() error {
	if d.opts.renderer == nil {
		return nil
	}
	return d.opts.renderer.Render(d.opts.output, d.Report())
}

// methodSignature describes a reflected method accepted by Methods.
type methodSignature struct {
	name      string
	typ       reflect.Type
	takesCtx  bool
	returnErr bool
}

func newMethodSignature(name string, mt reflect.Type) (methodSignature, error) {
	sig := methodSignature{
		name:     name,
		typ:      mt,
		takesCtx: mt.NumIn() > 0 && mt.In(0) == contextType,
	}

	if mt.IsVariadic() {
		return sig, fmt.Errorf("callcache: method %s is variadic", name)
	}

	switch mt.NumOut() {
	case 1:
		if mt.Out(0) == errorType {
			return sig, fmt.Errorf("callcache: method %s returns no result to cache", name)
		}
	case 2:
		if mt.Out(1) != errorType {
			return sig, fmt.Errorf("callcache: method %s must return (R, error)", name)
		}
		sig.returnErr = true
	default:
		return sig, fmt.Errorf("callcache: method %s must return (R) or (R, error)", name)
	}
	return sig, nil
}

func (s methodSignature) arity() int {
	if s.takesCtx {
		return s.typ.NumIn() - 1
	}
	return s.typ.NumIn()
}

// check rejects calls that cannot be passed to the method.
func (s methodSignature) check(args []any, kwargs cache.Kwargs) error {
	if len(kwargs) > 0 {
		return fmt.Errorf("callcache: method %s does not take keyword arguments", s.name)
	}
	if len(args) != s.arity() {
		return fmt.Errorf("callcache: method %s takes %d arguments, got %d", s.name, s.arity(), len(args))
	}
	offset := s.typ.NumIn() - s.arity()
	for i, a := range args {
		pt := s.typ.In(i + offset)
		if a == nil {
			continue
		}
		if !reflect.TypeOf(a).AssignableTo(pt) {
			return fmt.Errorf("callcache: method %s argument %d: %T is not assignable to %s", s.name, i, a, pt)
		}
	}
	return nil
}

// bind adapts the reflected method to a Func.
func (s methodSignature) bind(m reflect.Value) Func {
	return func(ctx context.Context, args []any, _ cache.Kwargs) (any, error) {
		in := make([]reflect.Value, 0, s.typ.NumIn())
		if s.takesCtx {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		offset := len(in)
		for i, a := range args {
			if a == nil {
				in = append(in, reflect.Zero(s.typ.In(i+offset)))
				continue
			}
			in = append(in, reflect.ValueOf(a))
		}

		out := m.Call(in)

		var err error
		if s.returnErr {
			if e := out[1].Interface(); e != nil {
				err = e.(error)
			}
		}
		return out[0].Interface(), err
	}
}
