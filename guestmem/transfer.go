package guestmem

import (
	"context"
	"unicode/utf8"

	hostbridge "github.com/edgelet/hostbridge"
	"github.com/edgelet/hostbridge/errors"
)

// ReadString copies a guest buffer out and validates it as UTF-8.
func ReadString(mem hostbridge.Memory, ptr, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	data, err := mem.Read(ptr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, data)
	}
	return string(data), nil
}

// ReadBytes copies a guest buffer out.
func ReadBytes(mem hostbridge.Memory, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	return mem.Read(ptr, length)
}

// WriteBytes allocates a fresh guest buffer, copies data into it, and
// returns the packed (ptr,len) reference. Empty data packs to zero
// without allocating.
func WriteBytes(ctx context.Context, mem hostbridge.Memory, alloc hostbridge.Allocator, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	size := uint32(len(data))
	ptr, err := alloc.Alloc(ctx, size)
	if err != nil {
		return 0, err
	}
	if err := mem.Write(ptr, data); err != nil {
		return 0, err
	}
	return hostbridge.PackPtrLen(ptr, size), nil
}

// WriteString encodes s as UTF-8 into a fresh guest buffer.
func WriteString(ctx context.Context, mem hostbridge.Memory, alloc hostbridge.Allocator, s string) (uint64, error) {
	return WriteBytes(ctx, mem, alloc, []byte(s))
}
