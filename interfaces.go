package kvtree

import "github.com/clydefs/kvtree/internal/interfaces"

// Backend is the interface a target's backing block store must
// implement. A sector read/write request is always a multiple of 512
// bytes.
type Backend = interfaces.Backend

// DiscardBackend is an optional interface for TRIM/DISCARD support.
type DiscardBackend = interfaces.DiscardBackend

// FDBackend is an optional interface for a Backend whose storage is a
// real file descriptor, letting the ATA Engine submit reads and writes
// through the Async Block I/O ring instead of a synchronous call.
type FDBackend = interfaces.FDBackend

// TreeBackend is the interface the external tree-store collaborator
// ("ClydeFS core") must implement. treebackend.Memory provides an
// in-process reference implementation for tests and examples.
type TreeBackend = interfaces.TreeBackend

// Logger is the logging interface accepted by Service options.
type Logger = interfaces.Logger

// Observer receives per-operation metrics callbacks from the service
// worker. Metrics, in this package, implements Observer.
type Observer = interfaces.Observer
