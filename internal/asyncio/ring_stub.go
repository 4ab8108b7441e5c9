//go:build !linux

package asyncio

import (
	"os"
	"sync"
)

// stubRing runs each submission on its own goroutine against the raw fd,
// used on platforms without io_uring. It preserves the same
// submit-returns-immediately, completion-delivered-later contract as the
// Linux ring.
type stubRing struct {
	wg sync.WaitGroup
}

// NewRing returns a goroutine-per-operation Ring. depth is accepted for
// interface parity with the Linux ring and is otherwise unused.
func NewRing(depth uint32) (Ring, error) {
	return &stubRing{}, nil
}

func (r *stubRing) Submit(op Op, fd uintptr, offset int64, buf []byte, done func(Completion)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		f := os.NewFile(fd, "")
		var n int
		var err error
		switch op {
		case OpRead:
			n, err = f.ReadAt(buf, offset)
		case OpWrite:
			n, err = f.WriteAt(buf, offset)
		}
		done(Completion{N: n, Err: err})
	}()
}

func (r *stubRing) Close() error {
	r.wg.Wait()
	return nil
}
