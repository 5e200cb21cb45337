package callcache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-callcache/cache"
)

// Binder registers a target and returns its intercepted form.
// Scope and Decorator implement it.
type Binder interface {
	Bind(name string, fn Func) (Func, error)
}

func arg[T any](args []any, i int) (T, error) {
	if i >= len(args) {
		var zero T
		return zero, fmt.Errorf("callcache: missing argument %d", i)
	}
	return cache.As[T](args[i])
}

func typedResult[R any](v any, err error) (R, error) {
	r, convErr := cache.As[R](v)
	if err != nil {
		return r, err
	}
	return r, convErr
}

// Wrap1 registers a typed single argument target and returns its intercepted form.
func Wrap1[A, R any](b Binder, name string, fn func(context.Context, A) (R, error)) (func(context.Context, A) (R, error), error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	call, err := b.Bind(name, func(ctx context.Context, args []any, _ cache.Kwargs) (any, error) {
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A) (R, error) {
		return typedResult[R](call(ctx, []any{a}, nil))
	}, nil
}

// Wrap2 is Wrap1 for two arguments.
func Wrap2[A, B, R any](b Binder, name string, fn func(context.Context, A, B) (R, error)) (func(context.Context, A, B) (R, error), error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	call, err := b.Bind(name, func(ctx context.Context, args []any, _ cache.Kwargs) (any, error) {
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		bv, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a, bv)
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A, bv B) (R, error) {
		return typedResult[R](call(ctx, []any{a, bv}, nil))
	}, nil
}

// Wrap3 is Wrap1 for three arguments.
func Wrap3[A, B, C, R any](b Binder, name string, fn func(context.Context, A, B, C) (R, error)) (func(context.Context, A, B, C) (R, error), error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	call, err := b.Bind(name, func(ctx context.Context, args []any, _ cache.Kwargs) (any, error) {
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		bv, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		c, err := arg[C](args, 2)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a, bv, c)
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A, bv B, c C) (R, error) {
		return typedResult[R](call(ctx, []any{a, bv, c}, nil))
	}, nil
}

// Pure1 registers a pure single argument function. The returned function
// panics only if the stored result has an unexpected type, which cannot
// happen for results written by this wrapper.
func Pure1[A, R any](b Binder, name string, fn func(A) R) (func(A) R, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	wrapped, err := Wrap1(b, name, func(_ context.Context, a A) (R, error) {
		return fn(a), nil
	})
	if err != nil {
		return nil, err
	}
	return func(a A) R {
		return must(wrapped(context.Background(), a))
	}, nil
}

// Pure2 is Pure1 for two arguments.
func Pure2[A, B, R any](b Binder, name string, fn func(A, B) R) (func(A, B) R, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	wrapped, err := Wrap2(b, name, func(_ context.Context, a A, bv B) (R, error) {
		return fn(a, bv), nil
	})
	if err != nil {
		return nil, err
	}
	return func(a A, bv B) R {
		return must(wrapped(context.Background(), a, bv))
	}, nil
}

// Pure3 is Pure1 for three arguments.
func Pure3[A, B, C, R any](b Binder, name string, fn func(A, B, C) R) (func(A, B, C) R, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	wrapped, err := Wrap3(b, name, func(_ context.Context, a A, bv B, c C) (R, error) {
		return fn(a, bv, c), nil
	})
	if err != nil {
		return nil, err
	}
	return func(a A, bv B, c C) R {
		return must(wrapped(context.Background(), a, bv, c))
	}, nil
}

func must[R any](r R, err error) R {
	if err != nil {
		panic(err)
	}
	return r
}

// Install1 replaces the pure function held by *slot with its intercepted
// form until the scope ends.
func Install1[A, R any](s *Scope, name string, slot *func(A) R) error {
	if slot == nil || *slot == nil {
		return fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	original := *slot
	wrapped, err := Pure1(s, name, original)
	if err != nil {
		return err
	}
	*slot = wrapped
	s.addPatch(name, func() error { return restoreSlot(name, slot, original, wrapped) })
	return nil
}

// Install2 is Install1 for two arguments.
func Install2[A, B, R any](s *Scope, name string, slot *func(A, B) R) error {
	if slot == nil || *slot == nil {
		return fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	original := *slot
	wrapped, err := Pure2(s, name, original)
	if err != nil {
		return err
	}
	*slot = wrapped
	s.addPatch(name, func() error { return restoreSlot(name, slot, original, wrapped) })
	return nil
}

// Install3 is Install1 for three arguments.
func Install3[A, B, C, R any](s *Scope, name string, slot *func(A, B, C) R) error {
	if slot == nil || *slot == nil {
		return fmt.Errorf("%w: %s", cache.ErrNilTarget, name)
	}
	original := *slot
	wrapped, err := Pure3(s, name, original)
	if err != nil {
		return err
	}
	*slot = wrapped
	s.addPatch(name, func() error { return restoreSlot(name, slot, original, wrapped) })
	return nil
}
