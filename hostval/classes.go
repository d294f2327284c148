package hostval

import (
	"time"

	"github.com/edgelet/hostbridge/errors"
)

// ClassIndex names a constructible host class. The registry is a closed
// enum: adding a class is a compile-time change, no reflection involved.
type ClassIndex uint32

const (
	ClassObject ClassIndex = iota
	ClassArray
	ClassBytes
	ClassDate
	ClassError

	classCount
)

// Class is the constructor value exposed for instance-of checks.
type Class struct {
	Index ClassIndex
	Name  string
}

var classNames = [classCount]string{
	ClassObject: "Object",
	ClassArray:  "Array",
	ClassBytes:  "Bytes",
	ClassDate:   "Date",
	ClassError:  "Error",
}

// Lookup returns the constructor value for a class index.
func Lookup(idx ClassIndex) (*Class, error) {
	if idx >= classCount {
		return nil, errors.UnsupportedClass(errors.PhaseCall, uint32(idx))
	}
	return &Class{Index: idx, Name: classNames[idx]}, nil
}

// Instantiate constructs a new instance of the class at idx. Args follow
// the call convention: Undefined means zero arguments, an *Array supplies
// positional arguments, anything else is a single argument.
func Instantiate(idx ClassIndex, args any) (any, error) {
	positional := Positional(args)

	switch idx {
	case ClassObject:
		return NewObject(), nil
	case ClassArray:
		return NewArray(positional...), nil
	case ClassBytes:
		if len(positional) == 1 {
			if n, ok := positional[0].(float64); ok && n >= 0 {
				return make(Bytes, int(n)), nil
			}
			if b, ok := positional[0].(Bytes); ok {
				out := make(Bytes, len(b))
				copy(out, b)
				return out, nil
			}
		}
		return Bytes{}, nil
	case ClassDate:
		if len(positional) == 1 {
			if ms, ok := positional[0].(float64); ok {
				return time.UnixMilli(int64(ms)).UTC(), nil
			}
			if s, ok := positional[0].(string); ok {
				t, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
						Detail("unparseable date %q", s).
						Cause(err).
						Build()
				}
				return t.UTC(), nil
			}
		}
		return time.Now().UTC(), nil
	case ClassError:
		msg := ""
		if len(positional) == 1 {
			if s, ok := positional[0].(string); ok {
				msg = s
			}
		}
		return &ErrorValue{Message: msg}, nil
	}

	return nil, errors.UnsupportedClass(errors.PhaseCall, uint32(idx))
}

// InstanceOf reports whether v is an instance of the class at idx.
// Unknown indices are not an error; nothing is an instance of them.
func InstanceOf(idx ClassIndex, v any) bool {
	switch idx {
	case ClassObject:
		_, ok := v.(*Object)
		return ok
	case ClassArray:
		_, ok := v.(*Array)
		return ok
	case ClassBytes:
		_, ok := v.(Bytes)
		return ok
	case ClassDate:
		_, ok := v.(time.Time)
		return ok
	case ClassError:
		_, ok := v.(*ErrorValue)
		return ok
	}
	return false
}

// Positional expands a call-arguments value into positional arguments:
// only Undefined means zero arguments, an *Array spreads its elements,
// anything else is passed through as a single argument. Null is a value,
// not an absence: it travels as one null argument.
func Positional(args any) []any {
	switch v := args.(type) {
	case Undefined:
		return nil
	case *Array:
		return v.Elems
	case nil:
		return []any{nil}
	default:
		return []any{v}
	}
}
