//go:build linux

package asyncio

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
)

// uringRing is a single-threaded io_uring instance guarded by a mutex on
// the submission side; completions are drained by one dedicated poller
// goroutine pinned for the ring's lifetime.
type uringRing struct {
	mu   sync.Mutex
	ring *giouring.Ring

	pending   sync.Map // user_data -> func(Completion)
	nextToken uint64

	stop chan struct{}
	done chan struct{}
}

// NewRing creates a giouring-backed Ring with the given submission queue
// depth.
func NewRing(depth uint32) (Ring, error) {
	ring, err := giouring.CreateRing(depth)
	if err != nil {
		return nil, fmt.Errorf("asyncio: create ring: %w", err)
	}
	r := &uringRing{
		ring: ring,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go r.poll()
	return r, nil
}

func (r *uringRing) Submit(op Op, fd uintptr, offset int64, buf []byte, done func(Completion)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sqe := r.ring.GetSQE()
	if sqe == nil {
		// Submission queue is full; report back-pressure synchronously
		// rather than blocking the caller, which would stall the service
		// worker that owns this ring.
		done(Completion{Err: fmt.Errorf("asyncio: submission queue full")})
		return
	}

	r.nextToken++
	token := r.nextToken
	r.pending.Store(token, done)

	switch op {
	case OpRead:
		sqe.PrepRead(int(fd), unsafe.Pointer(&buf[0]), uint32(len(buf)), uint64(offset))
	case OpWrite:
		sqe.PrepWrite(int(fd), unsafe.Pointer(&buf[0]), uint32(len(buf)), uint64(offset))
	}
	sqe.UserData = token

	if _, err := r.ring.Submit(); err != nil {
		r.pending.Delete(token)
		done(Completion{Err: fmt.Errorf("asyncio: submit: %w", err)})
	}
}

func (r *uringRing) poll() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		cqe, err := r.ring.WaitCQE()
		if err != nil {
			continue
		}

		token := cqe.UserData
		n := int(cqe.Res)
		r.ring.CQESeen(cqe)

		v, ok := r.pending.LoadAndDelete(token)
		if !ok {
			continue
		}
		done := v.(func(Completion))
		if n < 0 {
			done(Completion{Err: fmt.Errorf("asyncio: completion errno %d", -n)})
		} else {
			done(Completion{N: n})
		}
	}
}

func (r *uringRing) Close() error {
	close(r.stop)
	r.ring.QueueExit()
	<-r.done
	return nil
}
