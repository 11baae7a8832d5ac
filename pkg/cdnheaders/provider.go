package cdnheaders

import "sync/atomic"

// Provider hands out the engine snapshot used for one request.
type Provider interface {
	Engine() *Engine
}

// Holder swaps whole engine snapshots. A request keeps the snapshot it read
// first, so a reload never shows a half-updated policy.
type Holder struct {
	current atomic.Pointer[Engine]
}

// NewHolder returns a Holder serving e.
func NewHolder(e *Engine) *Holder {
	h := &Holder{}
	h.current.Store(e)
	return h
}

// Engine returns the current snapshot.
func (h *Holder) Engine() *Engine { return h.current.Load() }

// Swap installs e for subsequent requests.
func (h *Holder) Swap(e *Engine) { h.current.Store(e) }
