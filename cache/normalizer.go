package cache

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KeySeparator defines the delimiter used between canonical key segments.
const KeySeparator = ","

// DefaultMaxDepth bounds how deep the normalizer descends into nested values.
const DefaultMaxDepth = 32

var (
	keyerType = reflect.TypeOf((*Keyer)(nil)).Elem()
	timeType  = reflect.TypeOf(time.Time{})
)

// KeyNormalizer converts call arguments into canonical, comparable keys.
type KeyNormalizer interface {
	// Normalize builds a key for a single value.
	Normalize(v any) (CallKey, error)

	// NormalizeCall builds one key for positional and keyword arguments together.
	NormalizeCall(args []any, kwargs Kwargs) (CallKey, error)
}

// defaultNormalizer implements KeyNormalizer using reflection.
// Maps and sets are sorted by the canonical form of their keys so iteration
// order never leaks into the key.
type defaultNormalizer struct {
	maxDepth int
}

// NewDefaultNormalizer creates a normalizer with DefaultMaxDepth.
func NewDefaultNormalizer() KeyNormalizer {
	return NewNormalizer(DefaultMaxDepth)
}

// NewNormalizer creates a normalizer that refuses values nested deeper than maxDepth.
func NewNormalizer(maxDepth int) KeyNormalizer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &defaultNormalizer{maxDepth: maxDepth}
}

var defaultKeyNormalizer = NewDefaultNormalizer()

// Normalize builds a key for v with the default normalizer.
func Normalize(v any) (CallKey, error) {
	return defaultKeyNormalizer.Normalize(v)
}

// NormalizeCall builds a call key with the default normalizer.
func NormalizeCall(args []any, kwargs Kwargs) (CallKey, error) {
	return defaultKeyNormalizer.NormalizeCall(args, kwargs)
}

// HasCallable reports whether any top level positional or keyword argument is a function.
// Calls like that are never cached and never normalized.
func HasCallable(args []any, kwargs Kwargs) bool {
	for _, arg := range args {
		if isFunc(arg) {
			return true
		}
	}
	for _, v := range kwargs {
		if isFunc(v) {
			return true
		}
	}
	return false
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func (n *defaultNormalizer) Normalize(v any) (CallKey, error) {
	w := n.walker()
	s, err := w.value(reflect.ValueOf(v), "value", 0)
	if err != nil {
		return CallKey{}, err
	}
	return newCallKey(s), nil
}

func (n *defaultNormalizer) NormalizeCall(args []any, kwargs Kwargs) (CallKey, error) {
	w := n.walker()

	var b strings.Builder
	b.WriteString("args(")
	for i, arg := range args {
		if i > 0 {
			b.WriteString(KeySeparator)
		}
		s, err := w.value(reflect.ValueOf(arg), "args["+strconv.Itoa(i)+"]", 1)
		if err != nil {
			return CallKey{}, err
		}
		b.WriteString(s)
	}
	b.WriteString(")")

	if len(kwargs) > 0 {
		names := make([]string, 0, len(kwargs))
		for name := range kwargs {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("kwargs{")
		for i, name := range names {
			if i > 0 {
				b.WriteString(KeySeparator)
			}
			s, err := w.value(reflect.ValueOf(kwargs[name]), "kwargs["+strconv.Quote(name)+"]", 1)
			if err != nil {
				return CallKey{}, err
			}
			b.WriteString(strconv.Quote(name))
			b.WriteString("=")
			b.WriteString(s)
		}
		b.WriteString("}")
	}

	return newCallKey(b.String()), nil
}

func (n *defaultNormalizer) walker() *walker {
	return &walker{maxDepth: n.maxDepth, visiting: make(map[visit]struct{})}
}

// visit identifies a pointer being walked. A struct and its first field share
// an address, so the pointer type is part of the identity.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

// walker holds the state of a single normalization pass.
type walker struct {
	maxDepth int
	visiting map[visit]struct{}
}

// value returns the canonical encoding of rv.
func (w *walker) value(rv reflect.Value, path string, depth int) (string, error) {
	if depth > w.maxDepth {
		return "", w.fail(rv, path, "nested deeper than "+strconv.Itoa(w.maxDepth)+" levels")
	}
	if !rv.IsValid() {
		return "nil", nil
	}

	rt := rv.Type()

	if rt.Implements(keyerType) && rv.CanInterface() {
		if (rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Interface) && rv.IsNil() {
			return "nil", nil
		}
		return "keyer:" + typeName(rt) + "(" + strconv.Quote(rv.Interface().(Keyer).CallKey()) + ")", nil
	}

	if rt == timeType {
		return w.time(rv), nil
	}

	if w.isBasicType(rt.Kind()) {
		return typeName(rt) + "(" + w.basic(rv) + ")", nil
	}

	switch rt.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil", nil
		}
		v := visit{ptr: rv.Pointer(), typ: rt}
		if _, seen := w.visiting[v]; seen {
			return "", w.fail(rv, path, "pointer cycle")
		}
		w.visiting[v] = struct{}{}
		defer delete(w.visiting, v)
		return w.value(rv.Elem(), path, depth+1)

	case reflect.Interface:
		if rv.IsNil() {
			return "nil", nil
		}
		return w.value(rv.Elem(), path, depth+1)

	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return w.bytes(rv), nil
		}
		return w.sequence(rv, path, depth)

	case reflect.Map:
		if rt.Elem().Kind() == reflect.Struct && rt.Elem().NumField() == 0 {
			return w.set(rv, path, depth)
		}
		return w.mapping(rv, path, depth)

	case reflect.Struct:
		return w.structure(rv, rt, path, depth)

	case reflect.Func:
		return "", w.fail(rv, path, "functions have no value semantics")

	case reflect.Chan:
		return "", w.fail(rv, path, "channels have no value semantics")

	case reflect.UnsafePointer:
		return "", w.fail(rv, path, "unsafe pointers have no value semantics")
	}

	return "", w.fail(rv, path, "unsupported kind "+rt.Kind().String())
}

// sequence handles slices and arrays. Both encode the same way, so a slice
// and an array holding equal elements produce equal keys.
func (w *walker) sequence(rv reflect.Value, path string, depth int) (string, error) {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		s, err := w.value(rv.Index(i), path+"["+strconv.Itoa(i)+"]", depth+1)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "seq[" + strings.Join(parts, KeySeparator) + "]", nil
}

func (w *walker) bytes(rv reflect.Value) string {
	buf := make([]byte, rv.Len())
	for i := range buf {
		buf[i] = byte(rv.Index(i).Uint())
	}
	return "bytes(" + strconv.Quote(string(buf)) + ")"
}

// mapping sorts key/value pairs by their canonical form for deterministic output.
func (w *walker) mapping(rv reflect.Value, path string, depth int) (string, error) {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := w.value(iter.Key(), path+"[key]", depth+1)
		if err != nil {
			return "", err
		}
		v, err := w.value(iter.Value(), path+"["+k+"]", depth+1)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return "map{" + strings.Join(pairs, KeySeparator) + "}", nil
}

// set handles map[K]struct{}, the idiomatic Go set.
func (w *walker) set(rv reflect.Value, path string, depth int) (string, error) {
	elems := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		s, err := w.value(iter.Key(), path+"[elem]", depth+1)
		if err != nil {
			return "", err
		}
		elems = append(elems, s)
	}
	sort.Strings(elems)
	return "set{" + strings.Join(elems, KeySeparator) + "}", nil
}

// structure encodes every field, unexported ones included, so two values
// that differ only in private state never share a key.
func (w *walker) structure(rv reflect.Value, rt reflect.Type, path string, depth int) (string, error) {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)
	for i := 0; i < numFields; i++ {
		field := rt.Field(i)
		s, err := w.value(rv.Field(i), path+"."+field.Name, depth+1)
		if err != nil {
			return "", err
		}
		parts = append(parts, field.Name+":"+s)
	}
	return typeName(rt) + "{" + strings.Join(parts, KeySeparator) + "}", nil
}

// typeName qualifies named types with their import path so same-named types
// from different packages never share a key. Predeclared and unnamed types
// keep their short form.
func typeName(rt reflect.Type) string {
	if rt.Name() == "" || rt.PkgPath() == "" {
		return rt.String()
	}
	return rt.PkgPath() + "." + rt.Name()
}

// time encodes time.Time by instant and location. Values reached through
// unexported fields cannot be turned back into a time.Time, so their raw
// fields are used instead.
func (w *walker) time(rv reflect.Value) string {
	if rv.CanInterface() {
		t := rv.Interface().(time.Time)
		return "time(" + t.Format(time.RFC3339Nano) + "@" + t.Location().String() + ")"
	}
	loc := "UTC"
	if l := rv.FieldByName("loc"); l.IsValid() && !l.IsNil() {
		loc = l.Elem().FieldByName("name").String()
	}
	wall := rv.FieldByName("wall").Uint()
	ext := rv.FieldByName("ext").Int()
	return "time(" + strconv.FormatUint(wall, 10) + ":" + strconv.FormatInt(ext, 10) + "@" + loc + ")"
}

func (w *walker) basic(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Complex64:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 64)
	case reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 128)
	default:
		return strconv.Quote(rv.String())
	}
}

// isBasicType checks if a kind represents a basic Go type
func (w *walker) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

func (w *walker) fail(rv reflect.Value, path, reason string) error {
	name := "<nil>"
	if rv.IsValid() {
		name = rv.Type().String()
	}
	return &UnhashableInputError{Path: path, Type: name, Reason: reason}
}
