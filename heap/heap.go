package heap

import (
	"math"
	"sync"

	"github.com/edgelet/hostbridge/hostval"
)

// Handle is an opaque reference to one live host value. Non-reserved
// handles pack (slot index, generation) as generation<<32 | index, so a
// handle whose slot was freed and reissued decodes as absent instead of
// silently aliasing the new occupant.
type Handle uint64

// Reserved handles are permanent constants below the reserved threshold.
// They never alias table slots and Free on them is a no-op.
const (
	Null      Handle = 0
	Undefined Handle = 1
	True      Handle = 2
	False     Handle = 3
	Infinity  Handle = 4
	NaN       Handle = 5

	ReservedCount = 6
)

// DefaultMaxSlots bounds the live value count per table. The original
// design wrapped an allocation counter and assumed old handles were freed;
// the quota turns that assumption into an enforced bound.
const DefaultMaxSlots = 100_000

// Bool returns the reserved handle for a boolean.
func Bool(b bool) Handle {
	if b {
		return True
	}
	return False
}

// IsReserved reports whether h names a permanent constant.
func IsReserved(h Handle) bool {
	return h < ReservedCount
}

type slot struct {
	value      any
	generation uint32
	live       bool
}

// Heap maps handles to arbitrary host values. One table serves all
// in-flight requests on a runtime instance; it is mutex-guarded because
// request setup runs on caller goroutines while primitives run on the
// dispatcher loop.
type Heap struct {
	mu       sync.Mutex
	slots    []slot
	freeList []uint32
	maxSlots int
	live     int
}

func New() *Heap {
	return NewWithLimit(DefaultMaxSlots)
}

func NewWithLimit(maxSlots int) *Heap {
	if maxSlots <= 0 {
		maxSlots = DefaultMaxSlots
	}
	return &Heap{
		slots:    make([]slot, 0, 64),
		freeList: make([]uint32, 0, 16),
		maxSlots: maxSlots,
	}
}

// Put stores a value and returns its handle. Universal singletons (nil,
// undefined, booleans, +Inf, NaN) map to reserved handles without
// consuming a slot, so falsy-but-present values round-trip exactly. When
// the slot quota is exhausted Put returns Null; callers treat that as
// allocation failure. A non-nil scope records the handle for per-request
// leak accounting.
func (h *Heap) Put(scope *Scope, value any) Handle {
	if r, ok := reserve(value); ok {
		return r
	}

	h.mu.Lock()
	handle, ok := h.putSlot(value)
	h.mu.Unlock()
	if !ok {
		return Null
	}

	if scope != nil {
		scope.track(handle)
	}
	return handle
}

func (h *Heap) putSlot(value any) (Handle, bool) {
	if h.live >= h.maxSlots {
		return Null, false
	}

	if n := len(h.freeList); n > 0 {
		idx := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		s := &h.slots[idx]
		s.value = value
		s.live = true
		h.live++
		return pack(idx, s.generation), true
	}

	h.slots = append(h.slots, slot{value: value, live: true})
	h.live++
	return pack(uint32(len(h.slots)-1), 0), true
}

// Get decodes a handle. Reserved handles always yield their fixed
// singleton regardless of table state; stale or unknown handles yield
// (nil, false).
func (h *Heap) Get(handle Handle) (any, bool) {
	switch handle {
	case Null:
		return nil, true
	case Undefined:
		return hostval.Undefined{}, true
	case True:
		return true, true
	case False:
		return false, true
	case Infinity:
		return math.Inf(1), true
	case NaN:
		return math.NaN(), true
	}

	idx, gen := unpack(handle)

	h.mu.Lock()
	defer h.mu.Unlock()

	if int(idx) >= len(h.slots) {
		return nil, false
	}
	s := h.slots[idx]
	if !s.live || s.generation != gen {
		return nil, false
	}
	return s.value, true
}

// Free removes a non-reserved entry. Stale, reserved, and unknown handles
// are no-ops; repeated frees never corrupt the table. Freeing bumps the
// slot generation so the integer can be reissued without the old value
// ever being observable again.
func (h *Heap) Free(handle Handle) {
	if IsReserved(handle) {
		return
	}
	idx, gen := unpack(handle)

	h.mu.Lock()
	defer h.mu.Unlock()

	if int(idx) >= len(h.slots) {
		return
	}
	s := &h.slots[idx]
	if !s.live || s.generation != gen {
		return
	}
	s.live = false
	s.value = nil
	s.generation++
	h.live--
	h.freeList = append(h.freeList, idx)
}

// Live returns the number of live non-reserved values.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// Stats is a point-in-time snapshot for inspection tooling.
type Stats struct {
	Live     int
	Slots    int
	FreeList int
	MaxSlots int
}

func (h *Heap) Snapshot() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Live:     h.live,
		Slots:    len(h.slots),
		FreeList: len(h.freeList),
		MaxSlots: h.maxSlots,
	}
}

func reserve(value any) (Handle, bool) {
	switch v := value.(type) {
	case nil:
		return Null, true
	case hostval.Undefined:
		return Undefined, true
	case bool:
		return Bool(v), true
	case float64:
		if math.IsNaN(v) {
			return NaN, true
		}
		if math.IsInf(v, 1) {
			return Infinity, true
		}
	}
	return 0, false
}

// pack offsets slot indexes past the reserved range so a zero-generation
// slot never collides with a reserved handle value.
func pack(idx, gen uint32) Handle {
	return Handle(gen)<<32 | Handle(idx+ReservedCount)
}

func unpack(h Handle) (idx, gen uint32) {
	return uint32(h&0xffffffff) - ReservedCount, uint32(h >> 32)
}
