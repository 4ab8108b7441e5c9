package queue

import (
	"bytes"

	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/registry"
	"github.com/clydefs/kvtree/internal/wire"
)

// cfgResult is what handleCfg decided to do with a CFG sub-command: send
// a normal (possibly config-echoing) response, send an error response, or
// stay silent.
type cfgResult int

const (
	cfgRespond cfgResult = iota
	cfgError
	cfgDrop
)

// sectorsPerFrame returns how many 512-byte sectors of ATA payload fit in
// one Ethernet frame on mtu, matching the CFG scnt field's meaning.
func sectorsPerFrame(mtu int) uint8 {
	payload := mtu - wire.HeaderLen - wire.AtaHeaderLen
	if payload < constants.SectorSize {
		return 1
	}
	n := payload / constants.SectorSize
	if n > 255 {
		n = 255
	}
	return uint8(n)
}

// handleCfg implements the Config Responder: READ always
// echoes the stored config string; TEST/PTEST validate the request
// against it and stay silent on mismatch (AoEr11 behavior for CFG
// queries that don't match); SET rejects with AOEERR_CFG only when a
// non-empty existing config differs from the incoming one (a SET with
// the current config is a no-op); FSET always overwrites.
func handleCfg(t *registry.Target, cfg wire.CfgHeader, reqData []byte, mtu int) (cfgResult, []byte, uint8) {
	existing := t.Config()

	switch cfg.Nibble() {
	case wire.CfgRead:
		return cfgRespond, existing, 0

	case wire.CfgTest:
		if len(reqData) != len(existing) || !bytes.Equal(reqData, existing) {
			return cfgDrop, nil, 0
		}
		return cfgRespond, existing, 0

	case wire.CfgPTest:
		if len(reqData) > len(existing) || !bytes.Equal(reqData, existing[:len(reqData)]) {
			return cfgDrop, nil, 0
		}
		return cfgRespond, existing, 0

	case wire.CfgSet:
		if len(existing) != 0 && (len(existing) != len(reqData) || !bytes.Equal(existing, reqData)) {
			return cfgError, nil, wire.AOEERR_CFG
		}
		t.SetConfig(reqData)
		return cfgRespond, t.Config(), 0

	case wire.CfgFSet:
		t.SetConfig(reqData)
		return cfgRespond, t.Config(), 0

	default:
		return cfgError, nil, wire.AOEERR_ARG
	}
}
