package bridge

import (
	"context"

	"go.uber.org/zap"

	hostbridge "github.com/edgelet/hostbridge"
	"github.com/edgelet/hostbridge/heap"
	"github.com/edgelet/hostbridge/hostval"
	"github.com/edgelet/hostbridge/platform"
)

// Bridge holds everything the primitives operate on: the shared handle
// table, the platform services, and the per-instance memory binding.
// Bind must run once after instantiation, before any guest call.
type Bridge struct {
	heap     *heap.Heap
	services *platform.Services
	log      *zap.Logger

	mem   hostbridge.Memory
	alloc hostbridge.Allocator
}

func New(h *heap.Heap, services *platform.Services, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{heap: h, services: services, log: log}
}

// Bind attaches the guest instance's memory and allocator. The bridge is
// inert for memory-crossing primitives until bound.
func (b *Bridge) Bind(mem hostbridge.Memory, alloc hostbridge.Allocator) {
	b.mem = mem
	b.alloc = alloc
}

func (b *Bridge) Heap() *heap.Heap { return b.heap }

// Context plumbing. The dispatcher attaches the live request and its
// heap scope to the context each Step runs under, so primitives can
// charge allocations to the right request and task_register can find its
// owner without an explicit handle argument.

type ctxKeyScope struct{}
type ctxKeyRequest struct{}

func WithScope(ctx context.Context, s *heap.Scope) context.Context {
	return context.WithValue(ctx, ctxKeyScope{}, s)
}

func ScopeFrom(ctx context.Context) *heap.Scope {
	if v := ctx.Value(ctxKeyScope{}); v != nil {
		return v.(*heap.Scope)
	}
	return nil
}

func WithRequest(ctx context.Context, r *Request) context.Context {
	return context.WithValue(ctx, ctxKeyRequest{}, r)
}

func RequestFrom(ctx context.Context) *Request {
	if v := ctx.Value(ctxKeyRequest{}); v != nil {
		return v.(*Request)
	}
	return nil
}

func (b *Bridge) put(ctx context.Context, v any) heap.Handle {
	h := b.heap.Put(ScopeFrom(ctx), v)
	if h == heap.Null && v != nil {
		if _, undef := v.(hostval.Undefined); !undef {
			b.log.Warn("handle table exhausted", zap.Int("live", b.heap.Live()))
		}
	}
	return h
}

// value decodes a handle, warning on staleness. Decode failures are the
// caller's defined-failure path, never a trap.
func (b *Bridge) value(h heap.Handle, want string) (any, bool) {
	v, ok := b.heap.Get(h)
	if !ok {
		b.log.Warn("stale handle",
			zap.Uint64("handle", uint64(h)),
			zap.String("want", want))
	}
	return v, ok
}

func (b *Bridge) shapeWarn(h heap.Handle, want string, got any) {
	b.log.Warn("wrong-shape handle",
		zap.Uint64("handle", uint64(h)),
		zap.String("want", want),
		zap.String("got", hostval.TypeName(got)))
}

// object also accepts a request context handle, unwrapping to its data
// object so the guest can read event/request/env fields off it.
func (b *Bridge) object(h heap.Handle) (*hostval.Object, bool) {
	v, ok := b.value(h, "object")
	if !ok {
		return nil, false
	}
	switch o := v.(type) {
	case *hostval.Object:
		return o, true
	case *Request:
		return o.Object, true
	}
	b.shapeWarn(h, "object", v)
	return nil, false
}

func (b *Bridge) array(h heap.Handle) (*hostval.Array, bool) {
	v, ok := b.value(h, "array")
	if !ok {
		return nil, false
	}
	a, ok := v.(*hostval.Array)
	if !ok {
		b.shapeWarn(h, "array", v)
		return nil, false
	}
	return a, true
}

func (b *Bridge) function(h heap.Handle) (*hostval.Function, bool) {
	v, ok := b.value(h, "function")
	if !ok {
		return nil, false
	}
	f, ok := v.(*hostval.Function)
	if !ok {
		b.shapeWarn(h, "function", v)
		return nil, false
	}
	return f, true
}

func (b *Bridge) str(h heap.Handle) (string, bool) {
	v, ok := b.value(h, "string")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		b.shapeWarn(h, "string", v)
		return "", false
	}
	return s, true
}

func (b *Bridge) bytesVal(h heap.Handle) (hostval.Bytes, bool) {
	v, ok := b.value(h, "bytes")
	if !ok {
		return nil, false
	}
	bs, ok := v.(hostval.Bytes)
	if !ok {
		b.shapeWarn(h, "bytes", v)
		return nil, false
	}
	return bs, true
}

func (b *Bridge) request(h heap.Handle) (*Request, bool) {
	v, ok := b.value(h, "request context")
	if !ok {
		return nil, false
	}
	r, ok := v.(*Request)
	if !ok {
		b.shapeWarn(h, "request context", v)
		return nil, false
	}
	return r, true
}

func (b *Bridge) limiter(h heap.Handle) (*platform.Limiter, bool) {
	v, ok := b.value(h, "rate limiter")
	if !ok {
		return nil, false
	}
	l, ok := v.(*platform.Limiter)
	if !ok {
		b.shapeWarn(h, "rate limiter", v)
		return nil, false
	}
	return l, true
}

func (b *Bridge) resolver(h heap.Handle) (*TaskResolver, bool) {
	v, ok := b.value(h, "task resolver")
	if !ok {
		return nil, false
	}
	t, ok := v.(*TaskResolver)
	if !ok {
		b.shapeWarn(h, "task resolver", v)
		return nil, false
	}
	return t, true
}
