package guestmem

import (
	"bytes"
	"context"
	"testing"

	hostbridge "github.com/edgelet/hostbridge"
)

// fakeMemory is a flat in-process stand-in for guest linear memory.
type fakeMemory struct {
	data []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{data: make([]byte, size)}
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if int(offset)+int(length) > len(m.data) {
		return nil, errOOB
	}
	out := make([]byte, length)
	copy(out, m.data[offset:])
	return out, nil
}

func (m *fakeMemory) Write(offset uint32, data []byte) error {
	if int(offset)+len(data) > len(m.data) {
		return errOOB
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (m *fakeMemory) ReadU64(offset uint32) (uint64, error) {
	lo, err := m.ReadU32(offset)
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadU32(offset + 4)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (m *fakeMemory) WriteU32(offset uint32, value uint32) error {
	return m.Write(offset, []byte{byte(value), byte(value >> 8), byte(value >> 16), byte(value >> 24)})
}

func (m *fakeMemory) WriteU64(offset uint32, value uint64) error {
	if err := m.WriteU32(offset, uint32(value)); err != nil {
		return err
	}
	return m.WriteU32(offset+4, uint32(value>>32))
}

var errOOB = errFake("out of bounds")

type errFake string

func (e errFake) Error() string { return string(e) }

// bumpAllocator hands out sequential regions, never freeing. It records
// the last context it was called under.
type bumpAllocator struct {
	next    uint32
	lastCtx context.Context
}

func (a *bumpAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	a.lastCtx = ctx
	ptr := a.next
	if ptr == 0 {
		ptr = 8
	}
	a.next = ptr + size
	return ptr, nil
}

func (a *bumpAllocator) AllocSentinel(ctx context.Context, size uint32) (uint32, error) {
	return a.Alloc(ctx, size+1)
}

var (
	_ hostbridge.Memory    = (*fakeMemory)(nil)
	_ hostbridge.Allocator = (*bumpAllocator)(nil)
)

func TestReadString(t *testing.T) {
	mem := newFakeMemory(64)
	copy(mem.data[10:], "héllo")

	s, err := ReadString(mem, 10, uint32(len("héllo")))
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if s != "héllo" {
		t.Errorf("expected héllo, got %q", s)
	}
}

func TestReadString_Empty(t *testing.T) {
	mem := newFakeMemory(8)
	s, err := ReadString(mem, 9999, 0)
	if err != nil || s != "" {
		t.Errorf("empty read should succeed without touching memory: %q, %v", s, err)
	}
}

func TestReadString_InvalidUTF8(t *testing.T) {
	mem := newFakeMemory(8)
	mem.data[0] = 0xff
	mem.data[1] = 0xfe

	if _, err := ReadString(mem, 0, 2); err == nil {
		t.Error("expected invalid UTF-8 error")
	}
}

func TestReadString_OutOfBounds(t *testing.T) {
	mem := newFakeMemory(8)
	if _, err := ReadString(mem, 4, 100); err == nil {
		t.Error("expected out of bounds error")
	}
}

func TestWriteString_RoundTrip(t *testing.T) {
	mem := newFakeMemory(256)
	alloc := &bumpAllocator{}

	packed, err := WriteString(context.Background(), mem, alloc, "round trip ✓")
	if err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	ptr, length := hostbridge.UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		t.Fatalf("unexpected packed reference %d/%d", ptr, length)
	}

	got, err := ReadString(mem, ptr, length)
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "round trip ✓" {
		t.Errorf("round trip produced %q", got)
	}
}

// The caller's context must reach the guest allocator on every call,
// not a context captured at construction time.
func TestWriteBytes_ThreadsCallContext(t *testing.T) {
	mem := newFakeMemory(64)
	alloc := &bumpAllocator{}

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "per-call")

	if _, err := WriteBytes(ctx, mem, alloc, []byte{1}); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	if alloc.lastCtx == nil || alloc.lastCtx.Value(ctxKey{}) != "per-call" {
		t.Error("allocator did not receive the caller's context")
	}
}

func TestWriteBytes_Empty(t *testing.T) {
	mem := newFakeMemory(8)
	alloc := &bumpAllocator{}

	packed, err := WriteBytes(context.Background(), mem, alloc, nil)
	if err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	if packed != 0 {
		t.Errorf("empty write should pack to zero, got %d", packed)
	}
}

func TestWriteBytes_RoundTrip(t *testing.T) {
	mem := newFakeMemory(256)
	alloc := &bumpAllocator{}
	data := []byte{0, 1, 2, 254, 255}

	packed, err := WriteBytes(context.Background(), mem, alloc, data)
	if err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	ptr, length := hostbridge.UnpackPtrLen(packed)
	got, err := ReadBytes(mem, ptr, length)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip produced %v", got)
	}
}
