package queue

import (
	"errors"
	"sync"

	"github.com/clydefs/kvtree/internal/registry"
)

// memBackend is a minimal in-memory interfaces.Backend for exercising the
// ATA engine and dispatch logic without a real device.
type memBackend struct {
	mu       sync.Mutex
	data     []byte
	flushed  int
	failNext bool
}

func newMemBackend(size int64) *memBackend {
	return &memBackend{data: make([]byte, size)}
}

func (m *memBackend) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return 0, errors.New("simulated read failure")
	}
	return copy(p, m.data[off:off+int64(len(p))]), nil
}

func (m *memBackend) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return 0, errors.New("simulated write failure")
	}
	return copy(m.data[off:off+int64(len(p))], p), nil
}

func (m *memBackend) Size() int64 { return int64(len(m.data)) }
func (m *memBackend) Close() error { return nil }
func (m *memBackend) Flush() error { m.flushed++; return nil }

func newTestTarget(major uint16, minor uint8, sectors int64) *registry.Target {
	return registry.NewTarget(major, minor, "eth0", newMemBackend(sectors*512), nil)
}
