//go:build wasip1

package guest

// Raw hostbridge imports. Handles travel as i64, guest pointers and
// lengths as i32, numbers as f64. The typed Value API wraps these.

//go:wasmimport hostbridge free
func importFree(h uint64)

//go:wasmimport hostbridge number_get
func importNumberGet(h uint64) float64

//go:wasmimport hostbridge number_put
func importNumberPut(v float64) uint64

//go:wasmimport hostbridge string_put
func importStringPut(ptr, length uint32) uint64

//go:wasmimport hostbridge string_get
func importStringGet(h uint64) uint64

//go:wasmimport hostbridge bytes_put
func importBytesPut(ptr, length uint32) uint64

//go:wasmimport hostbridge bytes_get
func importBytesGet(h uint64) uint64

//go:wasmimport hostbridge array_push
func importArrayPush(arr, v uint64)

//go:wasmimport hostbridge array_push_number
func importArrayPushNumber(arr uint64, v float64)

//go:wasmimport hostbridge array_get
func importArrayGet(arr uint64, idx uint32) uint64

//go:wasmimport hostbridge array_get_number
func importArrayGetNumber(arr uint64, idx uint32) float64

//go:wasmimport hostbridge array_len
func importArrayLen(arr uint64) float64

//go:wasmimport hostbridge object_get
func importObjectGet(obj uint64, keyPtr, keyLen uint32) uint64

//go:wasmimport hostbridge object_set
func importObjectSet(obj uint64, keyPtr, keyLen uint32, v uint64)

//go:wasmimport hostbridge object_set_number
func importObjectSetNumber(obj uint64, keyPtr, keyLen uint32, v float64)

//go:wasmimport hostbridge object_has
func importObjectHas(obj uint64, keyPtr, keyLen uint32) uint64

//go:wasmimport hostbridge stringify
func importStringify(h uint64) uint64

//go:wasmimport hostbridge parse
func importParse(h uint64) uint64

//go:wasmimport hostbridge class_get
func importClassGet(idx uint32) uint64

//go:wasmimport hostbridge instantiate
func importInstantiate(idx uint32, args uint64) uint64

//go:wasmimport hostbridge equal
func importEqual(a, b uint64) uint64

//go:wasmimport hostbridge deep_equal
func importDeepEqual(a, b uint64) uint64

//go:wasmimport hostbridge instance_of
func importInstanceOf(idx uint32, h uint64) uint64

//go:wasmimport hostbridge call
func importCall(fn, args uint64) uint64

//go:wasmimport hostbridge call_async
func importCallAsync(fn, args uint64) uint64

//go:wasmimport hostbridge fetch
func importFetch(req uint64) uint64

//go:wasmimport hostbridge ratelimit_check
func importRatelimitCheck(limiter, key uint64) uint64

//go:wasmimport hostbridge resolve
func importResolve(ctx, result uint64)

//go:wasmimport hostbridge task_register
func importTaskRegister() uint64

//go:wasmimport hostbridge task_resolve
func importTaskResolve(resolver uint64)

//go:wasmimport hostbridge pass_through_on_exception
func importPassThroughOnException(ctx uint64)

//go:wasmimport hostbridge throw
func importThrow(msg uint64)

//go:wasmimport hostbridge log
func importLog(level, ptr, length uint32)

//go:wasmimport hostbridge cache_get
func importCacheGet(name uint64) uint64

//go:wasmimport hostbridge ratelimiter_get
func importRatelimiterGet(name uint64) uint64

//go:wasmimport hostbridge random_bytes
func importRandomBytes(ptr, length uint32)

//go:wasmimport hostbridge uuid
func importUUID() uint64

//go:wasmimport hostbridge crypto_engine
func importCryptoEngine() uint64
