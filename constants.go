package kvtree

import "github.com/clydefs/kvtree/internal/constants"

// Re-exported protocol and default constants for the public API.
const (
	EtherTypeAoE             = constants.EtherTypeAoE
	ProtocolVersion          = constants.ProtocolVersion
	SectorSize               = constants.SectorSize
	RequestSlotsPerTarget    = constants.RequestSlotsPerTarget
	MaxConfigLen             = constants.MaxConfigLen
	DefaultTreeQueueDepth    = constants.DefaultTreeQueueDepth
	DefaultTreeK             = constants.DefaultTreeK
	DefaultAdvertiseInterval = constants.DefaultAdvertiseInterval
)
