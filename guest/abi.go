package guest

// Value is an opaque handle to a host-side value. The integer carries no
// meaning beyond identity; a freed handle goes stale and decodes as
// absent on the host.
type Value uint64

// Reserved handles, identical for every runtime instance. They never go
// stale and Free on them is a no-op.
const (
	Null      Value = 0
	Undefined Value = 1
	True      Value = 2
	False     Value = 3
	Infinity  Value = 4
	NaN       Value = 5
)

// Bool converts a Go bool to its reserved handle.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Class indices accepted by class_get, instantiate, and instance_of.
const (
	ClassObject uint32 = iota
	ClassArray
	ClassBytes
	ClassDate
	ClassError
)

// Log levels for the host log import.
const (
	LevelDebug uint32 = iota
	LevelInfo
	LevelWarn
	LevelError
)

// PackPtrLen encodes a guest buffer reference as ptr<<32 | len, the
// format host-to-guest byte transfers use. An empty buffer packs to 0.
func PackPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackPtrLen splits a packed buffer reference.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}
