package config

import "sync/atomic"

// Holder owns the current configuration snapshot. Readers get an immutable
// pointer; a reload replaces the pointer instead of mutating fields.
type Holder struct {
	current atomic.Pointer[Configuration]
}

// NewHolder creates a Holder seeded with cfg.
func NewHolder(cfg *Configuration) *Holder {
	h := &Holder{}
	h.current.Store(cfg)
	return h
}

// Load returns the current snapshot. Callers must not modify it.
func (h *Holder) Load() *Configuration {
	return h.current.Load()
}

// Swap installs next and returns the previous snapshot.
func (h *Holder) Swap(next *Configuration) *Configuration {
	return h.current.Swap(next)
}
