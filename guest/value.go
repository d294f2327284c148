//go:build wasip1

package guest

// Free releases the handle. Every non-reserved Value the guest acquires
// should be freed exactly once; the host reclaims leaks at request end
// and logs the count.
func (v Value) Free() {
	importFree(uint64(v))
}

// Float reads a number handle. NaN signals a failed read.
func (v Value) Float() float64 {
	return importNumberGet(uint64(v))
}

// Text reads a string handle.
func (v Value) Text() string {
	return packedString(importStringGet(uint64(v)))
}

// Data reads a bytes handle.
func (v Value) Data() []byte {
	return packedBytes(importBytesGet(uint64(v)))
}

// Number stores a float as a host value.
func Number(f float64) Value {
	return Value(importNumberPut(f))
}

// String stores a Go string as a host value.
func String(s string) Value {
	ptr, length := stringPtr(s)
	return Value(importStringPut(ptr, length))
}

// Bytes stores a byte slice as a host value.
func Bytes(b []byte) Value {
	ptr, length := bytesPtr(b)
	return Value(importBytesPut(ptr, length))
}

// NewObject constructs an empty host object.
func NewObject() Value {
	return Value(importInstantiate(ClassObject, uint64(Undefined)))
}

// NewArray constructs an empty host array.
func NewArray() Value {
	return Value(importInstantiate(ClassArray, uint64(Undefined)))
}

// Get reads a member. Absent members read as Undefined; function members
// come back bound to v.
func (v Value) Get(key string) Value {
	ptr, length := stringPtr(key)
	return Value(importObjectGet(uint64(v), ptr, length))
}

// Set writes a member.
func (v Value) Set(key string, val Value) {
	ptr, length := stringPtr(key)
	importObjectSet(uint64(v), ptr, length, uint64(val))
}

// SetNumber writes a number member without an intermediate handle.
func (v Value) SetNumber(key string, f float64) {
	ptr, length := stringPtr(key)
	importObjectSetNumber(uint64(v), ptr, length, f)
}

// SetString writes a string member. The intermediate handle is freed.
func (v Value) SetString(key string, s string) {
	sv := String(s)
	v.Set(key, sv)
	sv.Free()
}

// Has reports member presence.
func (v Value) Has(key string) bool {
	ptr, length := stringPtr(key)
	return Value(importObjectHas(uint64(v), ptr, length)) == True
}

// Index reads an array element. Out of range reads as Undefined.
func (v Value) Index(i int) Value {
	return Value(importArrayGet(uint64(v), uint32(i)))
}

// FloatAt reads a number element without an intermediate handle.
func (v Value) FloatAt(i int) float64 {
	return importArrayGetNumber(uint64(v), uint32(i))
}

// Push appends an element.
func (v Value) Push(val Value) {
	importArrayPush(uint64(v), uint64(val))
}

// PushNumber appends a number without an intermediate handle.
func (v Value) PushNumber(f float64) {
	importArrayPushNumber(uint64(v), f)
}

// Len returns the array length, or -1 when v is not an array.
func (v Value) Len() int {
	n := importArrayLen(uint64(v))
	if n != n { // NaN
		return -1
	}
	return int(n)
}

// Call invokes a function handle synchronously. Arguments are passed
// positionally; the temporary argument array is freed.
func (v Value) Call(args ...Value) Value {
	argsH, cleanup := packArgs(args)
	defer cleanup()
	return Value(importCall(uint64(v), uint64(argsH)))
}

// Await invokes a function handle as a suspending operation. The guest
// stack unwinds while the host runs it; execution continues here with
// the result once it completes.
func (v Value) Await(args ...Value) Value {
	argsH, cleanup := packArgs(args)
	defer cleanup()
	return Value(importCallAsync(uint64(v), uint64(argsH)))
}

func packArgs(args []Value) (Value, func()) {
	if len(args) == 0 {
		return Undefined, func() {}
	}
	arr := NewArray()
	for _, a := range args {
		arr.Push(a)
	}
	return arr, arr.Free
}

// JSON encodes a value as a JSON string.
func (v Value) JSON() string {
	h := Value(importStringify(uint64(v)))
	defer h.Free()
	return h.Text()
}

// ParseJSON decodes a JSON string into a host value.
func ParseJSON(text string) Value {
	s := String(text)
	defer s.Free()
	return Value(importParse(uint64(s)))
}

// Equal reports identity equality of two handles.
func Equal(a, b Value) bool {
	return Value(importEqual(uint64(a), uint64(b))) == True
}

// DeepEqual reports structural equality. It fails closed: handles whose
// values cannot be canonicalized compare unequal.
func DeepEqual(a, b Value) bool {
	return Value(importDeepEqual(uint64(a), uint64(b))) == True
}

// InstanceOf reports whether v is an instance of the class at idx.
func (v Value) InstanceOf(idx uint32) bool {
	return Value(importInstanceOf(idx, uint64(v))) == True
}

// ClassOf returns the constructor value for a class index.
func ClassOf(idx uint32) Value {
	return Value(importClassGet(idx))
}

// New constructs a class instance with positional arguments.
func New(idx uint32, args ...Value) Value {
	argsH, cleanup := packArgs(args)
	defer cleanup()
	return Value(importInstantiate(idx, uint64(argsH)))
}

// Fetch performs an outbound HTTP request, suspending until the response
// object {status, statusText, headers, body} is available.
func Fetch(req Value) Value {
	return Value(importFetch(uint64(req)))
}

// RateLimitOK asks the named limiter for one token under key. Denied on
// any failure.
func RateLimitOK(name, key string) bool {
	nameH := String(name)
	defer nameH.Free()
	limiter := Value(importRatelimiterGet(uint64(nameH)))
	defer limiter.Free()
	keyH := String(key)
	defer keyH.Free()
	return Value(importRatelimitCheck(uint64(limiter), uint64(keyH))) == True
}

// Cache returns the named cache namespace object with get/put/delete
// members.
func Cache(name string) Value {
	nameH := String(name)
	defer nameH.Free()
	return Value(importCacheGet(uint64(nameH)))
}

// Crypto returns the crypto engine object with digest/hmac/randomUUID
// members.
func Crypto() Value {
	return Value(importCryptoEngine())
}

// UUID returns a fresh random UUID string.
func UUID() string {
	h := Value(importUUID())
	defer h.Free()
	return h.Text()
}

// RandomBytes fills a fresh slice from the host entropy source.
func RandomBytes(n int) []byte {
	buf := make([]byte, n)
	ptr, length := bytesPtr(buf)
	importRandomBytes(ptr, length)
	return buf
}

// Resolve settles the request with a result. The first resolution wins.
func Resolve(ctx, result Value) {
	importResolve(uint64(ctx), uint64(result))
}

// RegisterTask keeps the request alive past resolution until the
// returned resolver is passed to ResolveTask.
func RegisterTask() Value {
	return Value(importTaskRegister())
}

func ResolveTask(resolver Value) {
	importTaskResolve(resolver)
}

// PassThroughOnException makes an uncaught guest exception degrade to a
// pass-through outcome instead of failing the request.
func PassThroughOnException(ctx Value) {
	importPassThroughOnException(uint64(ctx))
}

// Throw aborts the request with a message.
func Throw(message string) {
	h := String(message)
	importThrow(uint64(h))
}

func logAt(level uint32, msg string) {
	ptr, length := stringPtr(msg)
	importLog(level, ptr, length)
}

func LogDebug(msg string) { logAt(LevelDebug, msg) }
func LogInfo(msg string)  { logAt(LevelInfo, msg) }
func LogWarn(msg string)  { logAt(LevelWarn, msg) }
func LogError(msg string) { logAt(LevelError, msg) }
