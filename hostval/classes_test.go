package hostval

import (
	"testing"
	"time"
)

func TestLookup(t *testing.T) {
	c, err := Lookup(ClassArray)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if c.Name != "Array" || c.Index != ClassArray {
		t.Errorf("unexpected class %+v", c)
	}

	if _, err := Lookup(ClassIndex(99)); err == nil {
		t.Error("expected error for unknown class index")
	}
}

func TestInstantiate(t *testing.T) {
	t.Run("Object", func(t *testing.T) {
		v, err := Instantiate(ClassObject, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := v.(*Object); !ok {
			t.Fatalf("expected object, got %T", v)
		}
	})

	t.Run("ArrayFromArgs", func(t *testing.T) {
		v, err := Instantiate(ClassArray, NewArray(1.0, 2.0))
		if err != nil {
			t.Fatal(err)
		}
		arr := v.(*Array)
		if arr.Len() != 2 {
			t.Errorf("expected 2 elements, got %d", arr.Len())
		}
	})

	t.Run("BytesSized", func(t *testing.T) {
		v, err := Instantiate(ClassBytes, 4.0)
		if err != nil {
			t.Fatal(err)
		}
		if b := v.(Bytes); len(b) != 4 {
			t.Errorf("expected 4 zero bytes, got %v", b)
		}
	})

	t.Run("DateFromMillis", func(t *testing.T) {
		v, err := Instantiate(ClassDate, 1000.0)
		if err != nil {
			t.Fatal(err)
		}
		if d := v.(time.Time); d.UnixMilli() != 1000 {
			t.Errorf("expected 1000ms, got %d", d.UnixMilli())
		}
	})

	t.Run("DateFromBadString", func(t *testing.T) {
		if _, err := Instantiate(ClassDate, "not a date"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Error", func(t *testing.T) {
		v, err := Instantiate(ClassError, "boom")
		if err != nil {
			t.Fatal(err)
		}
		if e := v.(*ErrorValue); e.Message != "boom" {
			t.Errorf("unexpected message %q", e.Message)
		}
	})

	t.Run("UnknownIndex", func(t *testing.T) {
		if _, err := Instantiate(ClassIndex(42), nil); err == nil {
			t.Error("expected error for unknown class")
		}
	})
}

func TestInstanceOf(t *testing.T) {
	tests := []struct {
		name string
		idx  ClassIndex
		v    any
		want bool
	}{
		{"object yes", ClassObject, NewObject(), true},
		{"object no", ClassObject, NewArray(), false},
		{"array yes", ClassArray, NewArray(), true},
		{"bytes yes", ClassBytes, Bytes{1}, true},
		{"date yes", ClassDate, time.Now(), true},
		{"error yes", ClassError, &ErrorValue{}, true},
		{"unknown index", ClassIndex(42), NewObject(), false},
		{"nil value", ClassObject, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := InstanceOf(tc.idx, tc.v); got != tc.want {
				t.Errorf("InstanceOf(%d, %T) = %v, want %v", tc.idx, tc.v, got, tc.want)
			}
		})
	}
}

func TestPositional(t *testing.T) {
	if got := Positional(Undefined{}); got != nil {
		t.Errorf("undefined args should spread to nothing, got %v", got)
	}
	if got := Positional(NewArray("a", "b")); len(got) != 2 {
		t.Errorf("array args should spread, got %v", got)
	}
	if got := Positional("single"); len(got) != 1 || got[0] != "single" {
		t.Errorf("scalar args should pass through, got %v", got)
	}
	// Null is an argument in its own right, not a zero-arg marker.
	if got := Positional(nil); len(got) != 1 || got[0] != nil {
		t.Errorf("null args should pass through as one null argument, got %v", got)
	}
}
