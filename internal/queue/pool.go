// Package queue hosts the service worker: the Frame Pool, Ingress
// Classifier, Config Responder, ATA Engine, and Tree Engine dispatch.
package queue

import "sync"

// FramePool provides pooled, size-bucketed Ethernet frame buffers for
// the three frame sizes this server actually moves: the minimum
// Ethernet frame, a common 1500-MTU frame, and a jumbo frame.
//
// Uses *[]byte pattern to avoid sync.Pool interface allocation overhead.
const (
	sizeMin   = 60
	sizeFrame = 1518
	sizeJumbo = 9018
)

var framePool = struct {
	min   sync.Pool
	frame sync.Pool
	jumbo sync.Pool
}{
	min:   sync.Pool{New: func() any { b := make([]byte, sizeMin); return &b }},
	frame: sync.Pool{New: func() any { b := make([]byte, sizeFrame); return &b }},
	jumbo: sync.Pool{New: func() any { b := make([]byte, sizeJumbo); return &b }},
}

// NewFrame returns a pooled buffer of at least the requested size.
// Caller must call Free when done.
func NewFrame(size int) []byte {
	switch {
	case size <= sizeMin:
		return (*framePool.min.Get().(*[]byte))[:size]
	case size <= sizeFrame:
		return (*framePool.frame.Get().(*[]byte))[:size]
	case size <= sizeJumbo:
		return (*framePool.jumbo.Get().(*[]byte))[:size]
	default:
		// Larger than every bucket: allocate directly; Free drops it.
		return make([]byte, size)
	}
}

// Free returns a frame buffer to the pool. The buffer's capacity
// determines which bucket it returns to; buffers of non-standard
// capacity (e.g. a caller-supplied slice) are simply dropped.
func Free(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case sizeMin:
		framePool.min.Put(&buf)
	case sizeFrame:
		framePool.frame.Put(&buf)
	case sizeJumbo:
		framePool.jumbo.Put(&buf)
	}
}
