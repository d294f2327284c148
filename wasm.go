package hostbridge

import "context"

// Memory represents guest linear memory as seen from the host.
// Buffers read from guest memory are copied out immediately; the host
// never retains a view into guest memory across a call boundary.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// Allocator reserves buffers inside guest linear memory. Implementations
// call the guest's exported alloc functions under the caller's context;
// ownership of the returned region is guest-side.
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
	AllocSentinel(ctx context.Context, size uint32) (uint32, error)
}
