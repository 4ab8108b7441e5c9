// Package link provides raw Ethernet I/O for one network interface,
// bound to the AoE EtherType. It replaces the original kernel module's
// NAPI receive hook and dev_queue_xmit egress path with a pair of
// goroutines over an AF_PACKET socket.
package link

import (
	"context"
	"fmt"
	"net"

	"github.com/mdlayher/packet"

	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/logging"
	"github.com/clydefs/kvtree/internal/wire"
)

// Frame is one captured or pending-transmit Ethernet frame together with
// the interface it arrived on or is destined for.
type Frame struct {
	Iface string
	Data  []byte
}

// Interface wraps a raw AF_PACKET socket bound to EtherType 0x88A2 on one
// NIC. Reads are pumped into Inbound by a dedicated goroutine; writes are
// sent directly via Send, invoked by the service's egress pump.
type Interface struct {
	name string
	hw   [wire.EthAddrLen]byte
	mtu  int

	conn *packet.Conn

	Inbound chan Frame

	log *logging.Logger
}

// Open binds a raw socket to ifaceName for the AoE EtherType.
func Open(ifaceName string, log *logging.Logger) (*Interface, error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("link: lookup interface %s: %w", ifaceName, err)
	}

	conn, err := packet.Listen(ifi, packet.Raw, wire.EtherType, nil)
	if err != nil {
		return nil, fmt.Errorf("link: listen on %s: %w", ifaceName, err)
	}

	var hw [wire.EthAddrLen]byte
	copy(hw[:], ifi.HardwareAddr)

	mtu := ifi.MTU
	if mtu <= 0 {
		mtu = constants.DefaultMTU
	}

	return &Interface{
		name:    ifaceName,
		hw:      hw,
		mtu:     mtu,
		conn:    conn,
		Inbound: make(chan Frame, constants.DefaultTreeQueueDepth),
		log:     log,
	}, nil
}

// HardwareAddr returns the interface's MAC address.
func (i *Interface) HardwareAddr() [wire.EthAddrLen]byte { return i.hw }

// Name returns the bound interface name.
func (i *Interface) Name() string { return i.name }

// MTU returns the interface's MTU, or the default if the kernel reported
// none.
func (i *Interface) MTU() int { return i.mtu }

// Run captures frames until ctx is canceled or the socket errors,
// delivering each to Inbound. It is meant to run in its own goroutine.
// Each iteration allocates a fresh read buffer sized to the interface's
// MTU; the frame pool is reserved for the hot response-building path in
// the service worker, which is exercised far more often than ingress
// capture.
func (i *Interface) Run(ctx context.Context) error {
	bufSize := i.mtu + wire.EthHeaderLen + 4
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		buf := make([]byte, bufSize)
		n, _, err := i.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			i.log.Warnf("link: read on %s failed: %v", i.name, err)
			continue
		}

		select {
		case i.Inbound <- Frame{Iface: i.name, Data: buf[:n]}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send transmits a raw Ethernet frame (including its 14-byte header) on
// this interface to the broadcast address.
func (i *Interface) Send(frame []byte) error {
	addr := &packet.Addr{HardwareAddr: net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}}
	_, err := i.conn.WriteTo(frame, addr)
	return err
}

// Close releases the underlying socket.
func (i *Interface) Close() error {
	return i.conn.Close()
}
