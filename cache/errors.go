package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTarget is returned when a call names a target that was never registered.
	ErrUnknownTarget = errors.New("callcache: unknown target")

	// ErrDuplicateTarget is returned when a target name is registered twice in one scope.
	ErrDuplicateTarget = errors.New("callcache: duplicate target")

	// ErrScopeClosed is returned when registering into a scope that already ended.
	ErrScopeClosed = errors.New("callcache: scope closed")

	// ErrNilTarget is returned when a nil function is registered.
	ErrNilTarget = errors.New("callcache: nil target function")

	// ErrInvalidResultType is returned when a cached result does not have the expected type.
	ErrInvalidResultType = errors.New("callcache: invalid result type")
)

// UnhashableInputError reports an argument that cannot be turned into a key.
type UnhashableInputError struct {
	Path   string
	Type   string
	Reason string
}

// Error implements the error interface.
func (e *UnhashableInputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unhashable input of type %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("unhashable input at %s (type %s): %s", e.Path, e.Type, e.Reason)
}

// IsUnhashable reports whether err is, or wraps, an UnhashableInputError.
func IsUnhashable(err error) bool {
	var target *UnhashableInputError
	return errors.As(err, &target)
}

// ScopeRestorationError reports a function slot that could not be restored
// when a scope ended, typically because something else reassigned it.
type ScopeRestorationError struct {
	Target string
	Reason string
}

// Error implements the error interface.
func (e *ScopeRestorationError) Error() string {
	return "restore " + e.Target + ": " + e.Reason
}
