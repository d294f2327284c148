package guestmem

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	hostbridge "github.com/edgelet/hostbridge"
	"github.com/edgelet/hostbridge/errors"
)

// ExportAlloc and ExportAllocSentinel are the guest export names the
// bridge allocates through. Ownership of returned regions is guest-side.
const (
	ExportAlloc         = "alloc"
	ExportAllocSentinel = "alloc_sentinel"
)

// GuestAllocator reserves guest buffers by calling the guest's exported
// allocators under the caller's context. It must only be used from the
// goroutine that owns the instance, like every other entry into the
// guest.
type GuestAllocator struct {
	alloc         api.Function
	allocSentinel api.Function
}

// NewGuestAllocator binds the guest's allocation exports. alloc is
// required; alloc_sentinel is optional and falls back to alloc.
func NewGuestAllocator(mod api.Module) (*GuestAllocator, error) {
	alloc := mod.ExportedFunction(ExportAlloc)
	if alloc == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "guest export", ExportAlloc)
	}
	return &GuestAllocator{
		alloc:         alloc,
		allocSentinel: mod.ExportedFunction(ExportAllocSentinel),
	}, nil
}

func (a *GuestAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := a.alloc.Call(ctx, uint64(size))
	if err != nil || len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size)
	}
	ptr := uint32(results[0])
	if ptr == 0 && size > 0 {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size)
	}
	return ptr, nil
}

func (a *GuestAllocator) AllocSentinel(ctx context.Context, size uint32) (uint32, error) {
	fn := a.allocSentinel
	if fn == nil {
		fn = a.alloc
	}
	results, err := fn.Call(ctx, uint64(size))
	if err != nil || len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size)
	}
	ptr := uint32(results[0])
	if ptr == 0 && size > 0 {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size)
	}
	return ptr, nil
}

var _ hostbridge.Allocator = (*GuestAllocator)(nil)
