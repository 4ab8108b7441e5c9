package queue

import (
	"context"
	"encoding/binary"
	"runtime"
	"sync"

	"github.com/clydefs/kvtree/internal/asyncio"
	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/interfaces"
	"github.com/clydefs/kvtree/internal/link"
	"github.com/clydefs/kvtree/internal/logging"
	"github.com/clydefs/kvtree/internal/registry"
	"github.com/clydefs/kvtree/internal/wire"
)

// ingressFrame pairs a captured frame with the interface it arrived on.
type ingressFrame struct {
	iface string
	data  []byte
}

// egressFrame pairs an outbound frame with the interface to send it on.
type egressFrame struct {
	iface string
	data  []byte
}

// Config configures a Worker.
type Config struct {
	Registry       *registry.Registry
	Logger         *logging.Logger
	Observer       interfaces.Observer
	TreeWorkers    int
	TreeQueueDepth int
}

// Worker is the service worker that replaces the original kernel
// module's condition-variable-driven kernel thread. It owns the Ingress
// Classifier, Config Responder, ATA Engine dispatch, Tree Engine
// submission, and the Egress Pump. Ingress and egress run on two
// separate goroutines (ingressLoop and egressPump), not on one shared
// goroutine.
type Worker struct {
	reg      *registry.Registry
	logger   *logging.Logger
	observer interfaces.Observer
	tree     *TreeEngine
	ring     asyncio.Ring

	inbound chan ingressFrame
	egress  chan egressFrame

	mu    sync.RWMutex
	links map[string]*link.Interface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker builds a Worker around the given registry.
func NewWorker(cfg Config) *Worker {
	workers := cfg.TreeWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	depth := cfg.TreeQueueDepth
	if depth <= 0 {
		depth = 256
	}
	w := &Worker{
		reg:      cfg.Registry,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		tree:     NewTreeEngine(workers, depth),
		inbound:  make(chan ingressFrame, depth),
		egress:   make(chan egressFrame, depth),
		links:    make(map[string]*link.Interface),
	}
	if ring, err := asyncio.NewRing(uint32(depth)); err != nil {
		if w.logger != nil {
			w.logger.Warnf("asyncio: ring unavailable, ATA I/O against fd-backed targets falls back to a blocking goroutine: %v", err)
		}
	} else {
		w.ring = ring
	}
	return w
}

// Start launches the ingress loop, egress pump, and tree worker pool.
func (w *Worker) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.tree.Start(w.ctx)
	w.wg.Add(2)
	go w.ingressLoop()
	go w.egressPump()
}

// Stop cancels the worker's context and waits for its goroutines to
// return. It does not drain in-flight target slots; callers drain each
// target's SlotTable before calling Stop.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.tree.Close()
	if w.ring != nil {
		if err := w.ring.Close(); err != nil && w.logger != nil {
			w.logger.Warnf("asyncio: ring close failed: %v", err)
		}
	}
}

// AttachLink registers iface for egress and starts forwarding its
// captured frames into the ingress pipeline. Must be called after Start.
func (w *Worker) AttachLink(iface *link.Interface) {
	w.mu.Lock()
	w.links[iface.Name()] = iface
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				return
			case f, ok := <-iface.Inbound:
				if !ok {
					return
				}
				select {
				case w.inbound <- ingressFrame{iface: f.Iface, data: f.Data}:
				case <-w.ctx.Done():
					return
				}
			}
		}
	}()
}

func (w *Worker) linkFor(iface string) *link.Interface {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.links[iface]
}

func (w *Worker) ingressLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case f := <-w.inbound:
			w.classify(f.iface, f.data)
		}
	}
}

func (w *Worker) egressPump() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case f := <-w.egress:
			l := w.linkFor(f.iface)
			if l == nil {
				Free(f.data)
				continue
			}
			if err := l.Send(f.data); err != nil && w.logger != nil {
				w.logger.Warnf("egress: send on %s failed: %v", f.iface, err)
			}
			Free(f.data)
		}
	}
}

func (w *Worker) sendEgress(iface string, data []byte) {
	select {
	case w.egress <- egressFrame{iface: iface, data: data}:
	case <-w.ctx.Done():
		Free(data)
	}
}

// classify is the Ingress Classifier: it validates the frame envelope,
// finds every matching target, and routes by AoE command.
func (w *Worker) classify(iface string, frame []byte) {
	if len(frame) < wire.EthHeaderLen+wire.HeaderLen {
		return
	}
	if binary.BigEndian.Uint16(frame[12:14]) != wire.EtherType {
		return
	}

	hdrBuf := frame[wire.EthHeaderLen:]
	if wire.ResponseFlagSet(hdrBuf) {
		return
	}
	h := wire.DecodeHeader(hdrBuf)
	body := hdrBuf[wire.HeaderLen:]
	srcMAC := [wire.EthAddrLen]byte{}
	copy(srcMAC[:], frame[6:12])

	w.reg.ForEachMatching(iface, h.Major, h.Minor, func(t *registry.Target) {
		w.dispatch(iface, t, h, srcMAC, body)
	})
}

// replyHeader builds the AoE header for a response to h, addressed from
// target t.
func replyHeader(t *registry.Target, h wire.Header) wire.Header {
	return wire.Header{
		Flags: wire.FlagResponse,
		Major: t.Major,
		Minor: t.Minor,
		Cmd:   h.Cmd,
		Tag:   h.Tag,
	}
}

// buildFrame assembles a complete response frame: Ethernet header
// addressed back to the initiator, the AoE header, and payload.
func buildFrame(dstMAC, srcMAC [wire.EthAddrLen]byte, hdr wire.Header, payload []byte) []byte {
	total := wire.EthHeaderLen + wire.HeaderLen + len(payload)
	size := total
	if size < 60 {
		size = 60
	}
	buf := NewFrame(size)
	for i := range buf {
		buf[i] = 0
	}
	copy(buf[0:6], dstMAC[:])
	copy(buf[6:12], srcMAC[:])
	binary.BigEndian.PutUint16(buf[12:14], wire.EtherType)
	wire.EncodeHeader(buf[wire.EthHeaderLen:], hdr)
	copy(buf[wire.EthHeaderLen+wire.HeaderLen:], payload)
	return buf[:size]
}

func (w *Worker) dispatch(iface string, t *registry.Target, h wire.Header, srcMAC [wire.EthAddrLen]byte, body []byte) {
	switch {
	case h.Cmd == wire.CommandCfg:
		w.dispatchCfg(iface, t, h, srcMAC, body)
	case h.Cmd == wire.CommandATA:
		w.dispatchATA(iface, t, h, srcMAC, body)
	case wire.IsTreeCommand(h.Cmd):
		w.dispatchTree(iface, t, h, srcMAC, body)
	}
}

func (w *Worker) dispatchCfg(iface string, t *registry.Target, h wire.Header, srcMAC [wire.EthAddrLen]byte, body []byte) {
	if len(body) < wire.CfgHeaderLen {
		return
	}
	cfg := wire.DecodeCfgHeader(body)
	reqData := body[wire.CfgHeaderLen:]
	if int(cfg.CSLen) <= len(reqData) {
		reqData = reqData[:cfg.CSLen]
	}

	l := w.linkFor(iface)
	mtu := 1500
	if l != nil {
		mtu = l.MTU()
	}

	result, data, errCode := handleCfg(t, cfg, reqData, mtu)
	if result == cfgDrop {
		return
	}

	respHdr := replyHeader(t, h)
	if result == cfgError {
		respHdr.Flags |= wire.FlagError
		respHdr.Err = errCode
	}

	respCfg := wire.CfgHeader{
		BufCnt:          0,
		Firmware:        constants.AnnounceFirmwareVersion,
		SectorsPerFrame: sectorsPerFrame(mtu),
		CCmd:            cfg.CCmd,
		CSLen:           uint16(len(data)),
	}

	payload := make([]byte, wire.CfgHeaderLen+len(data))
	wire.EncodeCfgHeader(payload, respCfg)
	copy(payload[wire.CfgHeaderLen:], data)

	var dstMAC [wire.EthAddrLen]byte
	if l != nil {
		dstMAC = srcMAC
		w.sendEgress(iface, buildFrame(dstMAC, l.HardwareAddr(), respHdr, payload))
	}
}

func (w *Worker) dispatchATA(iface string, t *registry.Target, h wire.Header, srcMAC [wire.EthAddrLen]byte, body []byte) {
	if len(body) < wire.AtaHeaderLen {
		return
	}
	ata := wire.DecodeAtaHeader(body)
	reqData := body[wire.AtaHeaderLen:]

	idx, ok := t.Slots.Alloc(h.Tag)
	if !ok {
		if w.observer != nil {
			w.observer.ObserveBusy(uint32(t.Slots.Busy()))
		}
		return
	}

	// Copy write payload out before returning, since the inbound frame
	// buffer is freed as soon as classify returns.
	var writeData []byte
	if ata.CmdStat == wire.ATACmdPIOWrite28 || ata.CmdStat == wire.ATACmdPIOWrite48 {
		writeData = make([]byte, len(reqData))
		copy(writeData, reqData)
	}

	l := w.linkFor(iface)
	if l == nil {
		t.Slots.Release(idx, h.Tag)
		return
	}
	srcHW := l.HardwareAddr()

	respond := func(result ataResult) {
		defer t.Slots.Release(idx, h.Tag)

		if w.observer != nil {
			switch ata.CmdStat {
			case wire.ATACmdPIORead28, wire.ATACmdPIORead48:
				w.observer.ObserveATARead(uint64(len(result.Data)), 0, result.Status&wire.ATAStatusErr == 0)
			case wire.ATACmdPIOWrite28, wire.ATACmdPIOWrite48:
				w.observer.ObserveATAWrite(uint64(len(writeData)), 0, result.Status&wire.ATAStatusErr == 0)
			case wire.ATACmdFlush:
				w.observer.ObserveATAFlush(0, result.Status&wire.ATAStatusErr == 0)
			}
		}

		respAta := wire.AtaHeader{
			ErrFeat: result.ErrFeat,
			SCnt:    ata.SCnt,
			CmdStat: result.Status,
			LBA:     ata.LBA,
		}
		respHdr := replyHeader(t, h)
		payload := make([]byte, wire.AtaHeaderLen+len(result.Data))
		wire.EncodeAtaHeader(payload, respAta)
		copy(payload[wire.AtaHeaderLen:], result.Data)

		w.sendEgress(iface, buildFrame(srcMAC, srcHW, respHdr, payload))
	}

	if w.ring != nil {
		if fdBackend, ok := t.Backend.(interfaces.FDBackend); ok {
			switch ata.CmdStat {
			case wire.ATACmdPIORead28, wire.ATACmdPIORead48:
				w.submitATARead(fdBackend, t, ata, respond)
				return
			case wire.ATACmdPIOWrite28, wire.ATACmdPIOWrite48:
				w.submitATAWrite(fdBackend, t, ata, writeData, respond)
				return
			}
		}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		respond(executeATA(t, ata, writeData))
	}()
}

// submitATARead validates the read's bounds synchronously, then hands the
// actual backend read to the Async Block I/O ring so the slot's
// IN_FLIGHT->FREE transition happens from the ring's completion callback
// rather than the classifying goroutine.
func (w *Worker) submitATARead(fdBackend interfaces.FDBackend, t *registry.Target, ata wire.AtaHeader, respond func(ataResult)) {
	off, length, errResult := ataReadParams(t, ata)
	if errResult != nil {
		respond(*errResult)
		return
	}
	buf := make([]byte, length)
	w.ring.Submit(asyncio.OpRead, fdBackend.Fd(), off, buf, func(c asyncio.Completion) {
		if c.Err != nil {
			respond(ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrUNC})
			return
		}
		respond(ataResult{Data: buf[:c.N], Status: wire.ATAStatusDRDY})
	})
}

// submitATAWrite validates the write's bounds synchronously, then hands
// the actual backend write to the Async Block I/O ring.
func (w *Worker) submitATAWrite(fdBackend interfaces.FDBackend, t *registry.Target, ata wire.AtaHeader, writeData []byte, respond func(ataResult)) {
	off, length, errResult := ataWriteParams(t, ata, writeData)
	if errResult != nil {
		respond(*errResult)
		return
	}
	w.ring.Submit(asyncio.OpWrite, fdBackend.Fd(), off, writeData[:length], func(c asyncio.Completion) {
		if c.Err != nil {
			respond(ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrUNC})
			return
		}
		respond(ataResult{Status: wire.ATAStatusDRDY})
	})
}

func (w *Worker) dispatchTree(iface string, t *registry.Target, h wire.Header, srcMAC [wire.EthAddrLen]byte, body []byte) {
	if len(body) < wire.TreeHeaderLen {
		return
	}
	th := wire.DecodeTreeHeader(body)
	data := body[wire.TreeHeaderLen:]
	reqData := make([]byte, len(data))
	copy(reqData, data)

	l := w.linkFor(iface)
	if l == nil {
		return
	}
	srcHW := l.HardwareAddr()

	job := treeJob{
		Target: t,
		Cmd:    h.Cmd,
		Header: th,
		Data:   reqData,
		Respond: func(respHdr wire.TreeHeader, respData []byte) {
			hdr := replyHeader(t, h)
			payload := make([]byte, wire.TreeHeaderLen+len(respData))
			wire.EncodeTreeHeader(payload, respHdr)
			copy(payload[wire.TreeHeaderLen:], respData)
			w.sendEgress(iface, buildFrame(srcMAC, srcHW, hdr, payload))
		},
	}

	t.TreeBusy.Add(1)
	if !w.tree.Submit(job) {
		t.TreeBusy.Add(-1)
		if w.logger != nil {
			w.logger.Warnf("tree engine queue full, dropping cmd %d for target %d.%d", h.Cmd, t.Major, t.Minor)
		}
	}
}
