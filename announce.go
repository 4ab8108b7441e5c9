package kvtree

import (
	"encoding/binary"
	"time"

	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/wire"
)

// announceLoop broadcasts an unsolicited CFG response for each target
// every DefaultAdvertiseInterval, so initiators performing AoE
// discovery see it without having to probe first, and logs a periodic
// target/interface count line.
func (s *Service) announceLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(constants.DefaultAdvertiseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			targets := s.reg.All()
			s.logger.Infof("kvtree: %d target(s) registered, %d interface(s) active", len(targets), s.linkCount())
			for _, t := range targets {
				s.broadcastAnnounce(t)
			}
		}
	}
}

func (s *Service) linkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// broadcastAnnounce sends one unsolicited CFG response frame for t to
// the Ethernet broadcast address (AoEr11's discovery convention).
func (s *Service) broadcastAnnounce(t *Target) {
	s.mu.Lock()
	l, ok := s.links[t.Iface]
	s.mu.Unlock()
	if !ok {
		return
	}

	cfg := t.Config()
	hdr := wire.Header{
		Flags: wire.FlagResponse,
		Major: t.Major,
		Minor: t.Minor,
		Cmd:   wire.CommandCfg,
	}
	cfgHdr := wire.CfgHeader{
		Firmware:        constants.AnnounceFirmwareVersion,
		SectorsPerFrame: uint8(l.MTU() / constants.SectorSize),
		CSLen:           uint16(len(cfg)),
	}

	payload := make([]byte, wire.CfgHeaderLen+len(cfg))
	wire.EncodeCfgHeader(payload, cfgHdr)
	copy(payload[wire.CfgHeaderLen:], cfg)

	frameLen := wire.EthHeaderLen + wire.HeaderLen + len(payload)
	if frameLen < 60 {
		frameLen = 60
	}
	frame := make([]byte, frameLen)
	wire.SetBroadcastDst(frame, l.HardwareAddr())
	binary.BigEndian.PutUint16(frame[12:14], wire.EtherType)
	wire.EncodeHeader(frame[wire.EthHeaderLen:], hdr)
	copy(frame[wire.EthHeaderLen+wire.HeaderLen:], payload)

	if err := l.Send(frame); err != nil {
		s.logger.Warnf("announce: send on %s failed: %v", t.Iface, err)
	}
}
