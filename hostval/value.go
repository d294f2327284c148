package hostval

import (
	"math"
	"reflect"
	"time"
)

// Undefined is the explicit-undefined singleton, distinct from Go nil
// (which models null / absence-of-value).
type Undefined struct{}

func (Undefined) String() string { return "undefined" }

// Array is a mutable positional container of host values.
type Array struct {
	Elems []any
}

func NewArray(elems ...any) *Array {
	return &Array{Elems: elems}
}

func (a *Array) Push(v any) {
	a.Elems = append(a.Elems, v)
}

func (a *Array) Get(i int) (any, bool) {
	if i < 0 || i >= len(a.Elems) {
		return nil, false
	}
	return a.Elems[i], true
}

func (a *Array) Len() int {
	return len(a.Elems)
}

// Object is a mutable keyed container preserving insertion order.
// Order matters for Stringify; lookups go through the index map.
type Object struct {
	keys   []string
	values map[string]any
}

func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

func (o *Object) Set(key string, v any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o *Object) Delete(key string) {
	if _, exists := o.values[key]; !exists {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			return
		}
	}
}

// Keys returns key names in insertion order. The slice is a copy.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Len() int {
	return len(o.keys)
}

// Bytes is a raw byte buffer host value.
type Bytes []byte

// Function is a callable host value. A Function fetched from an Object is
// bound to that object so later invocation has correct receiver semantics.
type Function struct {
	Name string
	Recv any
	Impl func(recv any, args []any) (any, error)
}

// Bind returns a copy of f with the receiver set. The original is unchanged.
func (f *Function) Bind(recv any) *Function {
	bound := *f
	bound.Recv = recv
	return &bound
}

func (f *Function) Invoke(args []any) (any, error) {
	return f.Impl(f.Recv, args)
}

// ErrorValue is a host-native error object.
type ErrorValue struct {
	Message string
}

func (e *ErrorValue) Error() string { return e.Message }

// Equal reports identity equality: same primitive value or same container
// identity. NaN equals NaN here because both name the same reserved
// singleton on the bridge.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(av) && math.IsNaN(bv) {
			return true
		}
		return av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}

	// Containers and functions compare by identity.
	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return false
	}
	switch ra.Kind() {
	case reflect.Pointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}
	return false
}
