package hostbridge

// PackPtrLen packs a guest pointer and byte length into the single u64
// the bridge uses for host-to-guest buffer returns. An empty buffer packs
// to zero.
func PackPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackPtrLen splits a packed buffer reference.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}
