// Package treebackend provides a reference, in-process implementation of
// the TreeBackend collaborator (ClydeFS core's wire ABI), built in the
// sharded-mutex style of backend.Memory so the tree engine is
// exercisable in tests and the example binary without a real ClydeFS
// core deployment.
package treebackend

import (
	"sync"
	"sync/atomic"

	"github.com/clydefs/kvtree"
)

const numShards = 16

// statusNoSuchTree/statusNoSuchNode are the ABI's positive "status code, not an
// error" results (clydeinterface.h: "1 => no such tree/node").
const (
	statusOK          = 0
	statusNoSuchTree  = 1
	statusNoSuchNode  = 1
	codeOutOfRange    = -1
)

type node struct {
	data []byte
}

type tree struct {
	k     uint8
	mu    sync.RWMutex
	nodes map[uint64]*node
	nextN uint64
}

// Memory is an in-process TreeBackend: a shared map of trees, each a
// sharded-by-nothing (tree bodies are expected to stay small enough for a
// single per-tree lock) map of nodes.
type Memory struct {
	shards [numShards]shard
	nextT  uint64
}

type shard struct {
	mu    sync.RWMutex
	trees map[uint64]*tree
}

// NewMemory constructs an empty Memory tree backend.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i].trees = make(map[uint64]*tree)
	}
	return m
}

func (m *Memory) shardFor(tid uint64) *shard {
	return &m.shards[tid%numShards]
}

// CreateTree allocates a new tree with the given k-value (nodes split at
// 2k children in a real ClydeFS core; the reference backend doesn't
// implement splitting, only identity bookkeeping). Returns 0 if a tree
// could not be created, matching the real ABI's failure convention.
func (m *Memory) CreateTree(k uint8) uint64 {
	tid := atomic.AddUint64(&m.nextT, 1)
	t := &tree{k: k, nodes: make(map[uint64]*node)}

	s := m.shardFor(tid)
	s.mu.Lock()
	s.trees[tid] = t
	s.mu.Unlock()
	return tid
}

// RemoveTree deletes tid and every node it contains.
func (m *Memory) RemoveTree(tid uint64) int {
	s := m.shardFor(tid)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trees[tid]; !ok {
		return statusNoSuchTree
	}
	delete(s.trees, tid)
	return statusOK
}

func (m *Memory) lookupTree(tid uint64) *tree {
	s := m.shardFor(tid)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trees[tid]
}

// InsertNode creates an empty node in tid and returns its identifier.
func (m *Memory) InsertNode(tid uint64) (uint64, int) {
	t := m.lookupTree(tid)
	if t == nil {
		return 0, statusNoSuchTree
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextN++
	nid := t.nextN
	t.nodes[nid] = &node{}
	return nid, statusOK
}

// RemoveNode deletes nid from tid.
func (m *Memory) RemoveNode(tid, nid uint64) int {
	t := m.lookupTree(tid)
	if t == nil {
		return statusNoSuchTree
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[nid]; !ok {
		return statusNoSuchNode
	}
	delete(t.nodes, nid)
	return statusOK
}

// ReadNode copies up to length bytes from nid starting at off into buf.
func (m *Memory) ReadNode(tid, nid, off, length uint64, buf []byte) (int, int) {
	t := m.lookupTree(tid)
	if t == nil {
		return 0, statusNoSuchTree
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[nid]
	if !ok {
		return 0, statusNoSuchNode
	}
	if off >= uint64(len(n.data)) {
		return 0, statusOK
	}
	end := off + length
	if end > uint64(len(n.data)) {
		end = uint64(len(n.data))
	}
	return copy(buf, n.data[off:end]), statusOK
}

// WriteNode writes data into nid at off, growing the node if necessary.
func (m *Memory) WriteNode(tid, nid, off uint64, data []byte) int {
	t := m.lookupTree(tid)
	if t == nil {
		return statusNoSuchTree
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[nid]
	if !ok {
		return statusNoSuchNode
	}
	need := off + uint64(len(data))
	if uint64(len(n.data)) < need {
		grown := make([]byte, need)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[off:], data)
	return statusOK
}

var _ kvtree.TreeBackend = (*Memory)(nil)
