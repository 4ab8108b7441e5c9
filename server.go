// Package kvtree implements an AoE (ATA-over-Ethernet) target server
// extended with a vendor-specific tree-node command set dispatched to an
// external tree-store collaborator ("ClydeFS core").
package kvtree

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/link"
	"github.com/clydefs/kvtree/internal/logging"
	"github.com/clydefs/kvtree/internal/queue"
	"github.com/clydefs/kvtree/internal/registry"
)

// Target is one exported blade: an AoE (major, minor) pair bound to a
// backend and a network interface.
type Target = registry.Target

// TargetParams describes a target to add to a Service.
type TargetParams struct {
	Iface    string
	Major    uint16
	Minor    uint8
	Backend  Backend
	Tree     TreeBackend
	Path     string // backing store identity, recorded for admin "show bpath"
	Model    string // defaults to constants.DefaultModel if empty
	Serial   string // defaults to constants.DefaultSerial if empty
	ReadOnly bool
}

// Options configures a Service.
type Options struct {
	Logger         *logging.Logger
	Observer       Observer
	TreeWorkers    int
	TreeQueueDepth int
}

// Service owns the target registry, the per-interface link layer, the
// service worker, and their shared lifecycle.
type Service struct {
	reg    *registry.Registry
	worker *queue.Worker
	logger *logging.Logger
	obs    Observer

	mu    sync.Mutex
	links map[string]*link.Interface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService constructs a Service. Call Start before adding targets.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	obs := opts.Observer
	if obs == nil {
		obs = NoOpObserver{}
	}

	reg := registry.New()
	worker := queue.NewWorker(queue.Config{
		Registry:       reg,
		Logger:         logger,
		Observer:       obs,
		TreeWorkers:    opts.TreeWorkers,
		TreeQueueDepth: opts.TreeQueueDepth,
	})

	return &Service{
		reg:    reg,
		worker: worker,
		logger: logger,
		obs:    obs,
		links:  make(map[string]*link.Interface),
	}
}

// Start brings the service worker up. It must be called before
// AddTarget.
func (s *Service) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.worker.Start(s.ctx)
	s.wg.Add(1)
	go s.announceLoop()
}

// Stop drains every registered target and shuts the service down.
func (s *Service) Stop() error {
	for _, t := range s.reg.All() {
		_ = s.RemoveTarget(t.Iface, t.Major, t.Minor)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.worker.Stop()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		_ = l.Close()
	}
	s.links = make(map[string]*link.Interface)
	return nil
}

// ensureLink opens (and attaches to the worker) the interface iface if
// it is not already open. Multiple targets on the same interface share
// one raw socket.
func (s *Service) ensureLink(iface string) (*link.Interface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.links[iface]; ok {
		return l, nil
	}

	l, err := link.Open(iface, s.logger)
	if err != nil {
		return nil, WrapError("ensureLink", err)
	}

	s.links[iface] = l
	s.worker.AttachLink(l)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := l.Run(s.ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Warnf("link %s stopped: %v", iface, err)
		}
	}()

	return l, nil
}

// AddTarget registers a new blade. It returns ErrTargetExists if one is
// already registered at (iface, major, minor).
func (s *Service) AddTarget(p TargetParams) error {
	if p.Backend == nil {
		return NewError("AddTarget", ErrCodeInvalid, "backend is required")
	}

	if _, err := s.ensureLink(p.Iface); err != nil {
		return err
	}

	t := registry.NewTarget(p.Major, p.Minor, p.Iface, p.Backend, p.Tree)
	t.Path = p.Path
	if p.Model != "" {
		t.Model = p.Model
	}
	if p.Serial != "" {
		t.Serial = p.Serial
	}
	t.ReadOnly = p.ReadOnly

	if !s.reg.Add(t) {
		return NewTargetError("AddTarget", p.Iface, p.Major, p.Minor, ErrCodeExists, "target already exists")
	}

	s.logger.Infof("target added: %s %d.%d (%d bytes)", p.Iface, p.Major, p.Minor, p.Backend.Size())
	return nil
}

// RemoveTarget drains and unregisters the target at (iface, major,
// minor), closing its backend. Draining blocks until every in-flight ATA
// slot and tree command completes.
func (s *Service) RemoveTarget(iface string, major uint16, minor uint8) error {
	t := s.reg.Remove(iface, major, minor)
	if t == nil {
		return NewTargetError("RemoveTarget", iface, major, minor, ErrCodeNotFound, "target not found")
	}

	t.Slots.Drain(func() { <-time.After(constants.ShutdownPollInterval) })
	for t.TreeBusy.Load() > 0 {
		<-time.After(constants.ShutdownPollInterval)
	}

	if err := t.Backend.Close(); err != nil {
		s.logger.Warnf("target %s %d.%d: backend close failed: %v", iface, major, minor, err)
	}

	s.logger.Infof("target removed: %s %d.%d", iface, major, minor)
	return nil
}

// DelTarget implements the management interface's non-blocking "del":
// it inspects the target's busy-count once and fails with ErrCodeBusy
// if non-zero, rather than waiting for it to drain the way
// Stop/RemoveTarget do for a full service shutdown.
func (s *Service) DelTarget(iface string, major uint16, minor uint8) error {
	t := s.reg.Get(iface, major, minor)
	if t == nil {
		return NewTargetError("DelTarget", iface, major, minor, ErrCodeNotFound, "target not found")
	}
	if t.Slots.Busy() > 0 || t.TreeBusy.Load() > 0 {
		return NewTargetError("DelTarget", iface, major, minor, ErrCodeBusy, "target is busy")
	}
	if s.reg.Remove(iface, major, minor) == nil {
		return NewTargetError("DelTarget", iface, major, minor, ErrCodeNotFound, "target not found")
	}
	if err := t.Backend.Close(); err != nil {
		s.logger.Warnf("target %s %d.%d: backend close failed: %v", iface, major, minor, err)
	}
	s.logger.Infof("target removed: %s %d.%d", iface, major, minor)
	return nil
}

// Targets returns a snapshot of every registered target.
func (s *Service) Targets() []*Target {
	return s.reg.All()
}

// Target returns the target at (iface, major, minor), or nil.
func (s *Service) Target(iface string, major uint16, minor uint8) *Target {
	return s.reg.Get(iface, major, minor)
}

func (s *Service) String() string {
	return fmt.Sprintf("kvtree.Service{targets=%d}", s.reg.Len())
}
