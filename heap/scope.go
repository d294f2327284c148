package heap

import "sync"

// Scope accounts for the handles a single logical request creates. The
// guest pairs every acquisition with a free; Release reclaims whatever is
// left and reports the leak count so a misbehaving request degrades only
// its own accounting, not the shared table.
type Scope struct {
	mu      sync.Mutex
	handles []Handle
}

func (h *Heap) NewScope() *Scope {
	return &Scope{}
}

func (s *Scope) track(handle Handle) {
	s.mu.Lock()
	s.handles = append(s.handles, handle)
	s.mu.Unlock()
}

// Outstanding returns the number of tracked handles still live.
func (s *Scope) Outstanding(h *Heap) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, handle := range s.handles {
		if _, ok := h.Get(handle); ok && !IsReserved(handle) {
			n++
		}
	}
	return n
}

// Release frees every tracked handle the guest did not free itself and
// returns how many were leaked. Safe to call once per scope; handles the
// guest already freed are stale by now and freeing them is a no-op.
func (h *Heap) Release(s *Scope) int {
	if s == nil {
		return 0
	}

	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	leaked := 0
	for _, handle := range handles {
		if _, ok := h.Get(handle); ok {
			leaked++
		}
		h.Free(handle)
	}
	return leaked
}
