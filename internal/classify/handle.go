package classify

import "sync/atomic"

// Handle is a shared reference to the current bundle supporting atomic hot
// swap on model update. In-flight inferences keep the snapshot they
// obtained from Current; subsequent calls observe the replacement.
type Handle struct {
	ptr atomic.Pointer[Bundle]
}

// NewHandle creates a handle. The initial bundle may be nil, in which case
// Current reports ErrModelUnavailable until a swap installs one.
func NewHandle(b *Bundle) *Handle {
	h := &Handle{}
	if b != nil {
		h.ptr.Store(b)
	}
	return h
}

// Current returns the current bundle snapshot.
func (h *Handle) Current() (*Bundle, error) {
	b := h.ptr.Load()
	if b == nil {
		return nil, ErrModelUnavailable
	}
	return b, nil
}

// Swap atomically replaces the current bundle.
func (h *Handle) Swap(b *Bundle) {
	h.ptr.Store(b)
}
