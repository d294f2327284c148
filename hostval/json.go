package hostval

import (
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/edgelet/hostbridge/errors"
)

// Stringify renders a host value as JSON text. Object keys keep insertion
// order. Undefined renders as null. Functions, class constructors, and
// cyclic values have no serialized form and fail.
func Stringify(v any) (string, error) {
	var b strings.Builder
	if err := writeJSON(&b, v, false, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Canonical renders a host value as canonical JSON: object keys sorted
// recursively. Two values with equal canonical forms are considered deeply
// equal by the bridge.
func Canonical(v any) (string, error) {
	var b strings.Builder
	if err := writeJSON(&b, v, true, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DeepEqual compares canonical forms. This is an approximation: values
// that cannot be canonicalized (functions, cycles) compare unequal rather
// than raising.
func DeepEqual(a, b any) bool {
	ca, err := Canonical(a)
	if err != nil {
		return false
	}
	cb, err := Canonical(b)
	if err != nil {
		return false
	}
	return ca == cb
}

// Parse decodes JSON text into host values: objects become *Object (keys
// sorted), arrays become *Array, numbers float64. Decode key order is not
// observable through the bridge contract, so sorted keys keep parse
// deterministic.
func Parse(text string) (any, error) {
	var raw any
	if err := sonic.UnmarshalString(text, &raw); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "parse JSON")
	}
	return fromDecoded(raw), nil
}

func fromDecoded(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, fromDecoded(t[k]))
		}
		return obj
	case []any:
		arr := NewArray()
		for _, e := range t {
			arr.Push(fromDecoded(e))
		}
		return arr
	default:
		return v
	}
}

// writeJSON recurses through containers. seen tracks the *Object and
// *Array values on the current path; revisiting one means the guest
// built a cycle, which has no JSON form and must error rather than
// recurse until the stack dies.
func writeJSON(b *strings.Builder, v any, canonical bool, seen map[any]struct{}) error {
	switch t := v.(type) {
	case nil, Undefined:
		b.WriteString("null")
		return nil
	case *Object:
		if t == nil {
			b.WriteString("null")
			return nil
		}
		if seen == nil {
			seen = make(map[any]struct{})
		}
		if _, onPath := seen[t]; onPath {
			return cycleError()
		}
		seen[t] = struct{}{}
		keys := t.Keys()
		if canonical {
			sort.Strings(keys)
		}
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeLeaf(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			val, _ := t.Get(k)
			if err := writeJSON(b, val, canonical, seen); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		delete(seen, t)
		return nil
	case *Array:
		if t == nil {
			b.WriteString("null")
			return nil
		}
		if seen == nil {
			seen = make(map[any]struct{})
		}
		if _, onPath := seen[t]; onPath {
			return cycleError()
		}
		seen[t] = struct{}{}
		b.WriteByte('[')
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSON(b, e, canonical, seen); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		delete(seen, t)
		return nil
	case Bytes:
		b.WriteByte('[')
		for i, c := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeLeaf(b, float64(c)); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	case *ErrorValue:
		b.WriteString(`{"message":`)
		if err := writeLeaf(b, t.Message); err != nil {
			return err
		}
		b.WriteByte('}')
		return nil
	case *Function:
		return errors.TypeMismatch(errors.PhaseMarshal, "function", "serializable value")
	case *Class:
		return errors.TypeMismatch(errors.PhaseMarshal, "class", "serializable value")
	case float64:
		// Non-finite numbers have no JSON form; render as null like the
		// host runtime's own stringifier.
		if math.IsNaN(t) || math.IsInf(t, 0) {
			b.WriteString("null")
			return nil
		}
		return writeLeaf(b, t)
	default:
		return writeLeaf(b, v)
	}
}

func cycleError() error {
	return errors.New(errors.PhaseMarshal, errors.KindInvalidData).
		Detail("cyclic value has no JSON form").
		Build()
}

// writeLeaf encodes scalars and anything else sonic can handle directly.
func writeLeaf(b *strings.Builder, v any) error {
	out, err := sonic.MarshalString(v)
	if err != nil {
		return errors.New(errors.PhaseMarshal, errors.KindInvalidData).
			GoType(TypeName(v)).
			Cause(err).
			Detail("value has no JSON form").
			Build()
	}
	b.WriteString(out)
	return nil
}

// TypeName names a host value's shape for diagnostics.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case *Object:
		return "object"
	case *Array:
		return "array"
	case Bytes:
		return "bytes"
	case *Function:
		return "function"
	case *Class:
		return "class"
	case *ErrorValue:
		return "error"
	case time.Time:
		return "date"
	}
	return reflect.TypeOf(v).String()
}
