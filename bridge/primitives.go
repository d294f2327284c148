package bridge

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/guestmem"
	"github.com/edgelet/hostbridge/heap"
	"github.com/edgelet/hostbridge/hostval"
)

// Free releases one handle. Stale and reserved handles are no-ops.
func (b *Bridge) Free(h heap.Handle) {
	b.heap.Free(h)
}

// NumberGet decodes a number handle. Failures read as NaN.
func (b *Bridge) NumberGet(h heap.Handle) float64 {
	v, ok := b.value(h, "number")
	if !ok {
		return math.NaN()
	}
	f, ok := v.(float64)
	if !ok {
		b.shapeWarn(h, "number", v)
		return math.NaN()
	}
	return f
}

func (b *Bridge) NumberPut(ctx context.Context, v float64) heap.Handle {
	return b.put(ctx, v)
}

// StringPut copies a guest buffer into a string handle. Invalid UTF-8 or
// an unreadable range yields Null.
func (b *Bridge) StringPut(ctx context.Context, ptr, length uint32) heap.Handle {
	s, err := guestmem.ReadString(b.mem, ptr, length)
	if err != nil {
		b.log.Warn("string_put failed", zap.Error(err))
		return heap.Null
	}
	return b.put(ctx, s)
}

// StringGet writes a string handle's content into fresh guest memory and
// returns the packed (ptr,len) reference, or 0 on failure.
func (b *Bridge) StringGet(ctx context.Context, h heap.Handle) uint64 {
	s, ok := b.str(h)
	if !ok {
		return 0
	}
	packed, err := guestmem.WriteString(ctx, b.mem, b.alloc, s)
	if err != nil {
		b.log.Warn("string_get failed", zap.Error(err))
		return 0
	}
	return packed
}

func (b *Bridge) BytesPut(ctx context.Context, ptr, length uint32) heap.Handle {
	data, err := guestmem.ReadBytes(b.mem, ptr, length)
	if err != nil {
		b.log.Warn("bytes_put failed", zap.Error(err))
		return heap.Null
	}
	return b.put(ctx, hostval.Bytes(data))
}

func (b *Bridge) BytesGet(ctx context.Context, h heap.Handle) uint64 {
	data, ok := b.bytesVal(h)
	if !ok {
		return 0
	}
	packed, err := guestmem.WriteBytes(ctx, b.mem, b.alloc, data)
	if err != nil {
		b.log.Warn("bytes_get failed", zap.Error(err))
		return 0
	}
	return packed
}

func (b *Bridge) ArrayPush(arrH, vH heap.Handle) {
	arr, ok := b.array(arrH)
	if !ok {
		return
	}
	v, ok := b.value(vH, "array element")
	if !ok {
		return
	}
	arr.Push(v)
}

func (b *Bridge) ArrayPushNumber(arrH heap.Handle, v float64) {
	arr, ok := b.array(arrH)
	if !ok {
		return
	}
	arr.Push(v)
}

// ArrayGet returns the element handle at idx. Out-of-range reads as
// Undefined, matching member access on a shorter array.
func (b *Bridge) ArrayGet(ctx context.Context, arrH heap.Handle, idx uint32) heap.Handle {
	arr, ok := b.array(arrH)
	if !ok {
		return heap.Null
	}
	v, ok := arr.Get(int(idx))
	if !ok {
		return heap.Undefined
	}
	return b.put(ctx, v)
}

func (b *Bridge) ArrayGetNumber(arrH heap.Handle, idx uint32) float64 {
	arr, ok := b.array(arrH)
	if !ok {
		return math.NaN()
	}
	v, ok := arr.Get(int(idx))
	if !ok {
		return math.NaN()
	}
	f, ok := v.(float64)
	if !ok {
		b.log.Warn("wrong-shape array element",
			zap.Uint64("array", uint64(arrH)),
			zap.Uint32("index", idx),
			zap.String("want", "number"),
			zap.String("got", hostval.TypeName(v)))
		return math.NaN()
	}
	return f
}

func (b *Bridge) ArrayLen(arrH heap.Handle) float64 {
	arr, ok := b.array(arrH)
	if !ok {
		return math.NaN()
	}
	return float64(arr.Len())
}

func (b *Bridge) readKey(keyPtr, keyLen uint32) (string, bool) {
	key, err := guestmem.ReadString(b.mem, keyPtr, keyLen)
	if err != nil {
		b.log.Warn("unreadable member key", zap.Error(err))
		return "", false
	}
	return key, true
}

// ObjectGet returns a member handle. Absent keys read as Undefined.
// Function members come out bound to the object they were read from.
func (b *Bridge) ObjectGet(ctx context.Context, objH heap.Handle, keyPtr, keyLen uint32) heap.Handle {
	obj, ok := b.object(objH)
	if !ok {
		return heap.Null
	}
	key, ok := b.readKey(keyPtr, keyLen)
	if !ok {
		return heap.Null
	}
	v, ok := obj.Get(key)
	if !ok {
		return heap.Undefined
	}
	if fn, isFn := v.(*hostval.Function); isFn {
		v = fn.Bind(obj)
	}
	return b.put(ctx, v)
}

func (b *Bridge) ObjectSet(objH heap.Handle, keyPtr, keyLen uint32, vH heap.Handle) {
	obj, ok := b.object(objH)
	if !ok {
		return
	}
	key, ok := b.readKey(keyPtr, keyLen)
	if !ok {
		return
	}
	v, ok := b.value(vH, "member value")
	if !ok {
		return
	}
	obj.Set(key, v)
}

func (b *Bridge) ObjectSetNumber(objH heap.Handle, keyPtr, keyLen uint32, v float64) {
	obj, ok := b.object(objH)
	if !ok {
		return
	}
	key, ok := b.readKey(keyPtr, keyLen)
	if !ok {
		return
	}
	obj.Set(key, v)
}

func (b *Bridge) ObjectHas(objH heap.Handle, keyPtr, keyLen uint32) heap.Handle {
	obj, ok := b.object(objH)
	if !ok {
		return heap.False
	}
	key, ok := b.readKey(keyPtr, keyLen)
	if !ok {
		return heap.False
	}
	return heap.Bool(obj.Has(key))
}

// Stringify encodes a value handle as a JSON string handle.
func (b *Bridge) Stringify(ctx context.Context, h heap.Handle) heap.Handle {
	v, ok := b.value(h, "stringifiable value")
	if !ok {
		return heap.Null
	}
	text, err := hostval.Stringify(v)
	if err != nil {
		b.log.Warn("stringify failed", zap.Error(err))
		return heap.Null
	}
	return b.put(ctx, text)
}

// Parse decodes a JSON string handle into a value handle.
func (b *Bridge) Parse(ctx context.Context, h heap.Handle) heap.Handle {
	text, ok := b.str(h)
	if !ok {
		return heap.Null
	}
	v, err := hostval.Parse(text)
	if err != nil {
		b.log.Warn("parse failed", zap.Error(err))
		return heap.Null
	}
	return b.put(ctx, v)
}

func (b *Bridge) ClassGet(ctx context.Context, idx uint32) heap.Handle {
	class, err := hostval.Lookup(hostval.ClassIndex(idx))
	if err != nil {
		b.log.Warn("unknown class", zap.Uint32("index", idx))
		return heap.Null
	}
	return b.put(ctx, class)
}

func (b *Bridge) Instantiate(ctx context.Context, idx uint32, argsH heap.Handle) heap.Handle {
	args, ok := b.value(argsH, "constructor arguments")
	if !ok {
		return heap.Null
	}
	v, err := hostval.Instantiate(hostval.ClassIndex(idx), args)
	if err != nil {
		b.log.Warn("instantiate failed", zap.Uint32("index", idx), zap.Error(err))
		return heap.Null
	}
	return b.put(ctx, v)
}

func (b *Bridge) Equal(aH, bH heap.Handle) heap.Handle {
	a, okA := b.heap.Get(aH)
	bv, okB := b.heap.Get(bH)
	if !okA || !okB {
		return heap.False
	}
	return heap.Bool(hostval.Equal(a, bv))
}

func (b *Bridge) DeepEqual(aH, bH heap.Handle) heap.Handle {
	a, okA := b.heap.Get(aH)
	bv, okB := b.heap.Get(bH)
	if !okA || !okB {
		return heap.False
	}
	return heap.Bool(hostval.DeepEqual(a, bv))
}

func (b *Bridge) InstanceOf(idx uint32, h heap.Handle) heap.Handle {
	v, ok := b.heap.Get(h)
	if !ok {
		return heap.False
	}
	return heap.Bool(hostval.InstanceOf(hostval.ClassIndex(idx), v))
}

// Call invokes a function handle synchronously. Undefined args mean a
// zero-argument call, an array spreads positionally, anything else is a
// single argument. A host-side invocation error aborts the guest call.
func (b *Bridge) Call(ctx context.Context, fnH, argsH heap.Handle) heap.Handle {
	fn, ok := b.function(fnH)
	if !ok {
		return heap.Null
	}
	args, ok := b.value(argsH, "call arguments")
	if !ok {
		return heap.Null
	}
	result, err := fn.Invoke(hostval.Positional(args))
	if err != nil {
		panic(err)
	}
	return b.put(ctx, result)
}
