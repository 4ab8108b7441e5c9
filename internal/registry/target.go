package registry

import (
	"sync"
	"sync/atomic"

	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/interfaces"
)

// Target is one exported blade: an AoE (major, minor) shelf/slot pair
// bound to a backing store and an Ethernet interface. It is the Go
// rendering of the original's per-device state, minus anything the
// kernel used to manage on our behalf (sysfs kobject, module refcounts).
type Target struct {
	Major uint16
	Minor uint8
	Iface string

	Backend     interfaces.Backend
	Tree        interfaces.TreeBackend
	Path        string
	Model       string
	Serial      string
	ReadOnly    bool

	Slots SlotTable

	// TreeBusy counts tree commands currently queued or executing against
	// this target, the tree-path counterpart to Slots' ATA busy count.
	// Incremented by the ingress dispatcher before handing a job to the
	// tree worker pool, decremented once the worker finishes it.
	TreeBusy atomic.Int32

	mu     sync.RWMutex
	config []byte
}

// NewTarget constructs a Target with defaults matching the original
// kernel module's.
func NewTarget(major uint16, minor uint8, iface string, backend interfaces.Backend, tree interfaces.TreeBackend) *Target {
	return &Target{
		Major:   major,
		Minor:   minor,
		Iface:   iface,
		Backend: backend,
		Tree:    tree,
		Model:   constants.DefaultModel,
		Serial:  constants.DefaultSerial,
	}
}

// Config returns a copy of the stored CFG blob.
func (t *Target) Config() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]byte, len(t.config))
	copy(out, t.config)
	return out
}

// SetConfig stores a new CFG blob, truncated to MaxConfigLen.
func (t *Target) SetConfig(cfg []byte) {
	if len(cfg) > constants.MaxConfigLen {
		cfg = cfg[:constants.MaxConfigLen]
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.config = append(t.config[:0], cfg...)
}

// Matches reports whether a wire (major, minor) pair selects this
// target, honoring the AoE broadcast wildcards.
func (t *Target) Matches(major uint16, minor uint8) bool {
	majorOK := major == t.Major || major == 0xFFFF
	minorOK := minor == t.Minor || minor == 0xFF
	return majorOK && minorOK
}
