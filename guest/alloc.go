//go:build wasip1

package guest

import "unsafe"

// Buffers handed to the host stay pinned here until the guest reads them
// back; Go's GC must not move or collect memory the host wrote into.
var allocations = make(map[uintptr][]byte)

//go:wasmexport alloc
func alloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	buf := make([]byte, size)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	allocations[ptr] = buf
	return uint32(ptr)
}

// alloc_sentinel reserves size+1 bytes with a trailing zero for guests
// that read returns as C strings. The host always reports explicit
// lengths, so the sentinel is a convenience only.
//
//go:wasmexport alloc_sentinel
func allocSentinel(size uint32) uint32 {
	buf := make([]byte, size+1)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	allocations[ptr] = buf
	return uint32(ptr)
}

// release drops a pinned buffer after its content was copied out.
func release(ptr uint32) {
	delete(allocations, uintptr(ptr))
}

// stringPtr returns the data pointer and length of s without copying.
// The string must stay reachable across the host call, which it does as
// an argument of the caller.
func stringPtr(s string) (uint32, uint32) {
	if len(s) == 0 {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s))
}

func bytesPtr(b []byte) (uint32, uint32) {
	if len(b) == 0 {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0]))), uint32(len(b))
}

// packedString copies a host-written packed (ptr,len) buffer into a Go
// string and releases the pinned allocation.
func packedString(packed uint64) string {
	ptr, length := UnpackPtrLen(packed)
	if length == 0 {
		return ""
	}
	s := string(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), int(length)))
	release(ptr)
	return s
}

func packedBytes(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if length == 0 {
		return nil
	}
	out := make([]byte, length)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), int(length)))
	release(ptr)
	return out
}
