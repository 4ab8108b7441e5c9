package registry

import (
	"sync"

	"github.com/clydefs/kvtree/internal/constants"
)

// SlotState is the state of one request slot.
type SlotState int

const (
	SlotFree SlotState = iota
	SlotInFlight
)

// Slot tracks one in-flight ATA request. Tag identifies the AoE frame tag
// that owns it so a late or duplicate completion can be recognized and
// dropped.
type Slot struct {
	State SlotState
	Tag   uint32
}

// SlotTable is the fixed-size per-target request slot array.
// Allocation is a linear scan under a single mutex, matching the
// original's array-of-slots-plus-counter design; there is no need for a
// free list at this depth.
type SlotTable struct {
	mu    sync.Mutex
	slots [constants.RequestSlotsPerTarget]Slot
	busy  int
}

// Alloc finds a free slot, marks it IN_FLIGHT with tag, and returns its
// index. ok is false if the table is full, which callers treat as
// congestion and drop the request.
func (t *SlotTable) Alloc(tag uint32) (index int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].State == SlotFree {
			t.slots[i] = Slot{State: SlotInFlight, Tag: tag}
			t.busy++
			return i, true
		}
	}
	return 0, false
}

// Release frees the slot at index if it is still owned by tag. Returns
// false if the slot had already been freed or reassigned, which a
// completion handler should treat as a no-op.
func (t *SlotTable) Release(index int, tag uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.slots) {
		return false
	}
	s := &t.slots[index]
	if s.State != SlotInFlight || s.Tag != tag {
		return false
	}
	s.State = SlotFree
	s.Tag = 0
	t.busy--
	return true
}

// Busy returns the number of slots currently IN_FLIGHT.
func (t *SlotTable) Busy() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Drain blocks until Busy reaches zero, polling at the given interval. It
// is used during target removal to let in-flight I/O complete instead of
// being torn down underneath it.
func (t *SlotTable) Drain(poll func()) {
	for t.Busy() > 0 {
		poll()
	}
}
