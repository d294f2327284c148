package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
)

// ErrorKind categorizes errors for integration with external error handling.
type ErrorKind string

const (
	KindUnknown  ErrorKind = "Unknown"
	KindCanceled ErrorKind = "Canceled"
	KindTimeout  ErrorKind = "Timeout"
	KindInternal ErrorKind = "Internal"
	KindInvalid  ErrorKind = "Invalid"
)

func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// StackRegion is one asyncify save area inside guest linear memory. Each
// suspended logical request owns its own region, so many requests can be
// suspended against one instance at once.
//
// Layout at Addr:
//   - [0:4] stack pointer (grows upward from Addr+8)
//   - [4:8] stack end
//   - [8:Size] saved stack data
type StackRegion struct {
	Addr uint32
	Size uint32
}

const DefaultStackSize uint32 = 4096

// Asyncify implements the Binaryen asyncify protocol (wasm-opt --asyncify).
//
// States: 0=Normal, 1=Unwinding (saving stack), 2=Rewinding (restoring stack).
// The module-global state is meaningful only around the currently running
// call; suspended requests are Normal from the module's perspective, their
// stacks parked in their own regions.
type Asyncify struct {
	exports struct {
		getState    api.Function
		startUnwind api.Function
		stopUnwind  api.Function
		startRewind api.Function
		stopRewind  api.Function
	}
	memory api.Memory
	state  int32
}

func NewAsyncify() *Asyncify {
	return &Asyncify{}
}

// IsAsyncified reports whether the binary carries asyncify exports.
func IsAsyncified(wasm []byte) bool {
	return bytes.Contains(wasm, []byte("asyncify_get_state"))
}

// Init binds asyncify exports. Call after module instantiation.
func (a *Asyncify) Init(mod api.Module) error {
	a.memory = mod.Memory()
	if a.memory == nil {
		return fmt.Errorf("asyncify: module has no memory")
	}

	a.exports.getState = mod.ExportedFunction("asyncify_get_state")
	a.exports.startUnwind = mod.ExportedFunction("asyncify_start_unwind")
	a.exports.stopUnwind = mod.ExportedFunction("asyncify_stop_unwind")
	a.exports.startRewind = mod.ExportedFunction("asyncify_start_rewind")
	a.exports.stopRewind = mod.ExportedFunction("asyncify_stop_rewind")

	if a.exports.getState == nil {
		return fmt.Errorf("asyncify: module missing asyncify_get_state export (run wasm-opt --asyncify)")
	}
	return nil
}

// InitRegion writes the stack pointer and end words for a save area.
// Call once per region before its first unwind.
func (a *Asyncify) InitRegion(r StackRegion) error {
	if a.memory == nil {
		return nil
	}
	stackPtr := r.Addr + 8
	stackEnd := r.Addr + r.Size
	if !a.memory.WriteUint32Le(r.Addr, stackPtr) {
		return fmt.Errorf("asyncify: failed to write stack pointer at %d", r.Addr)
	}
	if !a.memory.WriteUint32Le(r.Addr+4, stackEnd) {
		return fmt.Errorf("asyncify: failed to write stack end at %d", r.Addr+4)
	}
	return nil
}

// ResetRegion rewinds a region's stack pointer to empty. Call before
// reusing a region for a fresh unwind.
func (a *Asyncify) ResetRegion(r StackRegion) error {
	if a.memory == nil {
		return nil
	}
	if !a.memory.WriteUint32Le(r.Addr, r.Addr+8) {
		return fmt.Errorf("asyncify: failed to reset stack pointer at %d", r.Addr)
	}
	return nil
}

func (a *Asyncify) State() int32 {
	return atomic.LoadInt32(&a.state)
}

func (a *Asyncify) IsNormal() bool    { return atomic.LoadInt32(&a.state) == 0 }
func (a *Asyncify) IsUnwinding() bool { return atomic.LoadInt32(&a.state) == 1 }
func (a *Asyncify) IsRewinding() bool { return atomic.LoadInt32(&a.state) == 2 }

// StartUnwind begins saving the running call stack into r.
func (a *Asyncify) StartUnwind(ctx context.Context, r StackRegion) error {
	if a.exports.startUnwind != nil {
		_, err := a.exports.startUnwind.Call(ctx, uint64(r.Addr))
		if err == nil {
			atomic.StoreInt32(&a.state, 1)
		}
		return err
	}
	atomic.StoreInt32(&a.state, 1)
	return nil
}

func (a *Asyncify) StopUnwind(ctx context.Context) error {
	if a.exports.stopUnwind != nil {
		_, err := a.exports.stopUnwind.Call(ctx)
		if err == nil {
			atomic.StoreInt32(&a.state, 0)
		}
		return err
	}
	atomic.StoreInt32(&a.state, 0)
	return nil
}

// StartRewind begins restoring the call stack previously saved in r.
// The caller must re-invoke the suspended entry function afterwards.
func (a *Asyncify) StartRewind(ctx context.Context, r StackRegion) error {
	if a.exports.startRewind != nil {
		_, err := a.exports.startRewind.Call(ctx, uint64(r.Addr))
		if err == nil {
			atomic.StoreInt32(&a.state, 2)
		}
		return err
	}
	atomic.StoreInt32(&a.state, 2)
	return nil
}

func (a *Asyncify) StopRewind(ctx context.Context) error {
	if a.exports.stopRewind != nil {
		_, err := a.exports.stopRewind.Call(ctx)
		if err == nil {
			atomic.StoreInt32(&a.state, 0)
		}
		return err
	}
	atomic.StoreInt32(&a.state, 0)
	return nil
}
