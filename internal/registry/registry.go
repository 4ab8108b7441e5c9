// Package registry implements the target registry and per-target request
// slot table: the encapsulated replacement for the original kernel
// module's global linked list of devices.
package registry

import (
	"sync"
)

// Registry is a mutex-protected ordered collection of targets rather
// than a lock-free structure: target churn is rare next to the I/O path
// it guards access to.
type Registry struct {
	mu      sync.RWMutex
	targets []*Target
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Add registers a new target. It returns false if a target already
// exists at (major, minor) for the same interface.
func (r *Registry) Add(t *Target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.targets {
		if existing.Iface == t.Iface && existing.Major == t.Major && existing.Minor == t.Minor {
			return false
		}
	}
	r.targets = append(r.targets, t)
	return true
}

// Remove unregisters the target at (major, minor) on iface. It returns
// the removed target so the caller can drain and close it, or nil if no
// such target exists.
func (r *Registry) Remove(iface string, major uint16, minor uint8) *Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.targets {
		if t.Iface == iface && t.Major == major && t.Minor == minor {
			r.targets = append(r.targets[:i], r.targets[i+1:]...)
			return t
		}
	}
	return nil
}

// Get returns the target at (major, minor) on iface, or nil.
func (r *Registry) Get(iface string, major uint16, minor uint8) *Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.targets {
		if t.Iface == iface && t.Major == major && t.Minor == minor {
			return t
		}
	}
	return nil
}

// All returns a snapshot slice of every registered target.
func (r *Registry) All() []*Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// ForEachMatching invokes fn for every target on iface whose (major,
// minor) matches the wire-provided pair, honoring AoE broadcast
// wildcards. Used by the Ingress Classifier to fan a broadcast CFG query
// out to every blade on the interface. The registry lock is held for the
// whole fan-out, so a target cannot be removed while fn runs for it; fn
// must not call back into the Registry.
func (r *Registry) ForEachMatching(iface string, major uint16, minor uint8, fn func(*Target)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.targets {
		if t.Iface == iface && t.Matches(major, minor) {
			fn(t)
		}
	}
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}
