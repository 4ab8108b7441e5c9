package queue

import (
	"context"
	"sync"

	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/registry"
	"github.com/clydefs/kvtree/internal/wire"
)

// treeJob is one vendor tree command queued for the bounded worker pool.
type treeJob struct {
	Target   *registry.Target
	Cmd      uint8
	Header   wire.TreeHeader
	Data     []byte
	Respond  func(hdr wire.TreeHeader, data []byte)
}

// TreeEngine dispatches tree commands onto a fixed goroutine pool
// draining a bounded channel, the Go rendering of the original's
// WQ_HIGHPRI|WQ_CPU_INTENSIVE workqueue.
type TreeEngine struct {
	jobs    chan treeJob
	workers int
	wg      sync.WaitGroup
}

// NewTreeEngine builds a TreeEngine with the given worker count and
// queue depth.
func NewTreeEngine(workers, depth int) *TreeEngine {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = 1
	}
	return &TreeEngine{
		jobs:    make(chan treeJob, depth),
		workers: workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled.
func (e *TreeEngine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.run(ctx)
	}
}

// Submit enqueues a job without blocking. It returns false if the queue
// is full, which the caller treats as congestion, the same drop policy
// applied to the ATA path.
func (e *TreeEngine) Submit(job treeJob) bool {
	select {
	case e.jobs <- job:
		return true
	default:
		return false
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (e *TreeEngine) Close() {
	close(e.jobs)
	e.wg.Wait()
}

func (e *TreeEngine) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-e.jobs:
			if !ok {
				return
			}
			e.process(job)
		}
	}
}

// treeErr folds the ClydeFS core return-code convention (0 success, 1
// not-found, negative errno) into the wire TreeHeader's Err field.
func treeErr(code int) uint32 {
	switch {
	case code == 0:
		return 0
	case code > 0:
		return uint32(code)
	default:
		return uint32(-code)
	}
}

func (e *TreeEngine) process(j treeJob) {
	defer j.Target.TreeBusy.Add(-1)
	tree := j.Target.Tree

	switch j.Cmd {
	case wire.CommandCreateTree:
		tid := tree.CreateTree(constants.DefaultTreeK)
		j.Respond(wire.TreeHeader{TID: tid}, nil)

	case wire.CommandRemoveTree:
		code := tree.RemoveTree(j.Header.TID)
		j.Respond(wire.TreeHeader{TID: j.Header.TID, Err: treeErr(code)}, nil)

	case wire.CommandInsertNode:
		nid, code := tree.InsertNode(j.Header.TID)
		j.Respond(wire.TreeHeader{TID: j.Header.TID, NID: nid, Err: treeErr(code)}, nil)

	case wire.CommandRemoveNode:
		code := tree.RemoveNode(j.Header.TID, j.Header.NID)
		j.Respond(wire.TreeHeader{TID: j.Header.TID, NID: j.Header.NID, Err: treeErr(code)}, nil)

	case wire.CommandUpdateNode:
		code := tree.WriteNode(j.Header.TID, j.Header.NID, j.Header.Off, j.Data)
		j.Respond(wire.TreeHeader{
			TID: j.Header.TID, NID: j.Header.NID, Off: j.Header.Off,
			Len: uint64(len(j.Data)), Err: treeErr(code),
		}, nil)

	case wire.CommandReadNode:
		buf := make([]byte, j.Header.Len)
		n, code := tree.ReadNode(j.Header.TID, j.Header.NID, j.Header.Off, j.Header.Len, buf)
		if n < 0 {
			n = 0
		}
		j.Respond(wire.TreeHeader{
			TID: j.Header.TID, NID: j.Header.NID, Off: j.Header.Off,
			Len: uint64(n), Err: treeErr(code),
		}, buf[:n])
	}
}
