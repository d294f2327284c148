package guest

import "testing"

func TestPackPtrLen(t *testing.T) {
	packed := PackPtrLen(0x1000, 42)
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0x1000 || length != 42 {
		t.Errorf("round trip = %d/%d", ptr, length)
	}
	if PackPtrLen(0, 0) != 0 {
		t.Error("empty buffer should pack to zero")
	}
}

func TestBool(t *testing.T) {
	if Bool(true) != True || Bool(false) != False {
		t.Error("bool handles must map to the reserved pair")
	}
}

func TestReservedHandlesMatchHost(t *testing.T) {
	// The guest-side constants mirror the host table's reserved range.
	want := []Value{Null, Undefined, True, False, Infinity, NaN}
	for i, h := range want {
		if uint64(h) != uint64(i) {
			t.Errorf("reserved handle %d = %d", i, h)
		}
	}
}
