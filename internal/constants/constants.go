package constants

import "time"

// Protocol constants from AoEr11 and this command set's vendor extension.
const (
	// EtherTypeAoE is the registered EtherType for ATA over Ethernet.
	EtherTypeAoE = 0x88A2

	// ProtocolVersion is the only AoE header version this server speaks.
	ProtocolVersion = 1

	// SectorSize is the fixed ATA sector size in bytes.
	SectorSize = 512

	// RequestSlotsPerTarget is the fixed number of in-flight ATA slots
	// tracked per target.
	RequestSlotsPerTarget = 16

	// MaxConfigLen is the maximum stored CFG blob length, in bytes.
	MaxConfigLen = 1024

	// ModelLen and SerialLen are the fixed, space-padded identity string
	// widths carried by IDENTIFY and announcement frames.
	ModelLen  = 40
	SerialLen = 20

	// MinEthernetFrameLen is the minimum length of an Ethernet frame,
	// excluding the 4-byte FCS that userspace never sees (64 bytes with
	// it); shorter frames are zero-padded up to this length.
	MinEthernetFrameLen = 60

	// DefaultMTU is used for frame sizing when an interface reports none.
	DefaultMTU = 1500
)

// Default configuration constants for the service and its tree pool.
const (
	// DefaultTreeQueueDepth is the default bounded queue depth for the
	// tree worker pool, carried over from the original's
	// WQ_HIGHPRI|WQ_CPU_INTENSIVE workqueue depth.
	DefaultTreeQueueDepth = 256

	// DefaultTreeK is the fixed k-value used for CREATETREE.
	DefaultTreeK = 10

	// DefaultAdvertiseInterval is how often every target's announcement is
	// broadcast and the target/interface count line is logged. No
	// per-packet counter is kept or logged.
	DefaultAdvertiseInterval = 10 * time.Second

	// ShutdownPollInterval is the backoff between busy-count polls during
	// target teardown.
	ShutdownPollInterval = 100 * time.Millisecond
)

// FirmwareVersion values written into CFG and announcement frames.
const (
	// AnnounceFirmwareVersion is written into unsolicited CFG broadcasts.
	AnnounceFirmwareVersion = 0x0002

	// IdentifyFirmwareRevision is the firmware revision string reported
	// by ATA IDENTIFY ("V0.2").
	IdentifyFirmwareRevision = "V0.2"
)

// DefaultModel and DefaultSerial seed newly added targets, matching the
// original kernel module's defaults.
const (
	DefaultModel  = "EtherDrive(R) kvblade"
	DefaultSerial = "SN HERE"
)
