package backend

import (
	"errors"
	"os"
	"sync"
	"syscall"

	"github.com/clydefs/kvtree"
	"github.com/mdlayher/block"
)

// ErrReadOnly is returned by File.WriteAt when the target was registered
// read-only.
var ErrReadOnly = errors.New("backend: target is read-only")

// File backs a target with a real block device or regular file, opened
// O_RDWR in the style of mdlayher/aoe's cmd/aoed. The admin "add" verb
// requires the opened path to report non-zero capacity before it
// registers a target against it. A second, separately opened *os.File
// against the same path supplies the raw file descriptor the Async
// Block I/O ring submits against, since block.Device keeps its own fd
// unexported.
type File struct {
	dev  *block.Device
	f    *os.File
	size int64

	mu       sync.RWMutex
	readOnly bool
}

// OpenFile opens path for use as a target's backing store.
func OpenFile(path string) (*File, error) {
	dev, err := block.New(path, syscall.O_RDWR|syscall.O_CLOEXEC)
	if err != nil {
		return nil, err
	}
	size, err := dev.Size()
	if err != nil {
		dev.Close()
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return &File{dev: dev, f: f, size: size}, nil
}

// Fd returns the raw file descriptor backing this target, for submission
// through asyncio.Ring.
func (f *File) Fd() uintptr { return f.f.Fd() }

// SetReadOnly marks f read-only; subsequent WriteAt calls fail with
// ErrReadOnly.
func (f *File) SetReadOnly(ro bool) {
	f.mu.Lock()
	f.readOnly = ro
	f.mu.Unlock()
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.dev.ReadAt(p, off)
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	ro := f.readOnly
	f.mu.RUnlock()
	if ro {
		return 0, ErrReadOnly
	}
	return f.dev.WriteAt(p, off)
}

// Size returns the backing device's byte capacity, captured at open time.
func (f *File) Size() int64 { return f.size }

func (f *File) Close() error {
	ferr := f.f.Close()
	if err := f.dev.Close(); err != nil {
		return err
	}
	return ferr
}

// Flush syncs the backing file or device, writing back any data that
// WriteAt left in the kernel page cache (the device is opened without
// O_DIRECT or O_SYNC).
func (f *File) Flush() error { return f.f.Sync() }

var (
	_ kvtree.Backend   = (*File)(nil)
	_ kvtree.FDBackend = (*File)(nil)
)
