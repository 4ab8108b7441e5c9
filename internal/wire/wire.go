// Package wire implements the on-the-wire layout of AoE frames: the
// Ethernet header, the 10-byte AoE header, and the three sub-headers
// (CFG, ATA, and the vendor tree command set) that follow it.
//
// Layout mirrors AoEr11 bit-for-bit; multi-byte AoE header fields are
// network order (big-endian), while the ATA sub-header's LBA field is
// little-endian, matching the ATA wire convention it was lifted from.
package wire

import (
	"encoding/binary"
)

// EtherType is the registered AoE EtherType, network order when placed on
// the wire by the link layer.
const EtherType = 0x88A2

// Ethernet header field widths and offsets.
const (
	EthAddrLen    = 6
	EthHeaderLen  = 2*EthAddrLen + 2
	ethDstOffset  = 0
	ethSrcOffset  = EthAddrLen
	ethTypeOffset = 2 * EthAddrLen
)

// AoE header field widths, offsets (relative to the start of the AoE
// header, i.e. immediately after the Ethernet header), and flag/version
// bits.
const (
	HeaderLen = 10

	hdrVerFlOffset = 0
	hdrErrOffset   = 1
	hdrMajorOffset = 2
	hdrMinorOffset = 4
	hdrCmdOffset   = 5
	hdrTagOffset   = 6

	// Version occupies the top nibble of the verfl byte.
	ProtocolVersion = 0x1
	verShift        = 4

	// FlagResponse and FlagError occupy the bottom nibble of verfl.
	FlagResponse = 0x08
	FlagError    = 0x04

	// MajorWildcard and MinorWildcard match any target in ForEachMatching.
	MajorWildcard = 0xFFFF
	MinorWildcard = 0xFF
)

// Command codes. The tree commands form a contiguous range so the
// dispatcher can use a single range test.
const (
	CommandATA        = 0x00
	CommandCfg        = 0x01
	CommandCreateTree = 0x02
	CommandRemoveTree = 0x03
	CommandInsertNode = 0x04
	CommandUpdateNode = 0x05
	CommandReadNode   = 0x06
	CommandRemoveNode = 0x07
)

// IsTreeCommand reports whether cmd falls in the vendor tree command range.
func IsTreeCommand(cmd uint8) bool {
	return cmd >= CommandCreateTree && cmd <= CommandRemoveNode
}

// AoE protocol-level error codes (AoEr11 §3.2).
const (
	ErrUnrecognizedCommand = 1
	ErrBadArgument         = 2
	ErrDeviceUnavailable   = 3
	ErrConfigStringPresent = 4
	ErrUnsupportedVersion  = 5

	// AOEERR_ARG and AOEERR_CFG are the two error codes this command set
	// actually emits.
	AOEERR_ARG = ErrBadArgument
	AOEERR_CFG = ErrConfigStringPresent
)

// Header is the 10-byte AoE header.
type Header struct {
	Version bool // true when the decoded version nibble equals ProtocolVersion
	Flags   uint8
	Err     uint8
	Major   uint16
	Minor   uint8
	Cmd     uint8
	Tag     uint32
}

// VerFlags reconstructs the packed version/flags byte.
func (h Header) VerFlags() uint8 {
	return ProtocolVersion<<verShift | h.Flags
}

// DecodeHeader reads the AoE header from buf, which must be at least
// HeaderLen bytes (the Ethernet header is not included).
func DecodeHeader(buf []byte) Header {
	verfl := buf[hdrVerFlOffset]
	return Header{
		Version: verfl>>verShift == ProtocolVersion,
		Flags:   verfl & 0x0f,
		Err:     buf[hdrErrOffset],
		Major:   binary.BigEndian.Uint16(buf[hdrMajorOffset:]),
		Minor:   buf[hdrMinorOffset],
		Cmd:     buf[hdrCmdOffset],
		Tag:     binary.BigEndian.Uint32(buf[hdrTagOffset:]),
	}
}

// EncodeHeader writes h into buf, which must be at least HeaderLen bytes.
func EncodeHeader(buf []byte, h Header) {
	buf[hdrVerFlOffset] = h.VerFlags()
	buf[hdrErrOffset] = h.Err
	binary.BigEndian.PutUint16(buf[hdrMajorOffset:], h.Major)
	buf[hdrMinorOffset] = h.Minor
	buf[hdrCmdOffset] = h.Cmd
	binary.BigEndian.PutUint32(buf[hdrTagOffset:], h.Tag)
}

// SetResponseFlag sets the RSP bit and clears ERR, as done when a request
// buffer is turned into its own reply in place.
func SetResponseFlag(buf []byte) {
	buf[hdrVerFlOffset] = ProtocolVersion<<verShift | FlagResponse
}

// SetError sets the ERR flag and writes the AoE error code.
func SetError(buf []byte, code uint8) {
	buf[hdrVerFlOffset] |= FlagError
	buf[hdrErrOffset] = code
}

// SwapEthernetAddrs swaps the destination and source MAC addresses in
// place and overwrites the source with srcMAC, turning an inbound frame's
// header into the start of its own reply.
func SwapEthernetAddrs(buf []byte, srcMAC [EthAddrLen]byte) {
	var dst [EthAddrLen]byte
	copy(dst[:], buf[ethSrcOffset:ethSrcOffset+EthAddrLen])
	copy(buf[ethDstOffset:], dst[:])
	copy(buf[ethSrcOffset:], srcMAC[:])
	binary.BigEndian.PutUint16(buf[ethTypeOffset:], EtherType)
}

// SetBroadcastDst sets the Ethernet destination to the broadcast address
// and the source to srcMAC, used by unsolicited announcements.
func SetBroadcastDst(buf []byte, srcMAC [EthAddrLen]byte) {
	for i := 0; i < EthAddrLen; i++ {
		buf[ethDstOffset+i] = 0xFF
	}
	copy(buf[ethSrcOffset:], srcMAC[:])
	binary.BigEndian.PutUint16(buf[ethTypeOffset:], EtherType)
}

// ResponseFlagSet reports whether an inbound frame is already marked as a
// response, in which case it must be dropped.
func ResponseFlagSet(buf []byte) bool {
	return buf[hdrVerFlOffset]&0x0f&FlagResponse != 0
}

// CfgCommand values (low nibble of CCmd).
const (
	CfgRead  = 0
	CfgTest  = 1
	CfgPTest = 2
	CfgSet   = 3
	CfgFSet  = 4
)

// CfgHeader is the CFG sub-header. Data is sliced separately from the
// frame buffer following it.
type CfgHeader struct {
	BufCnt          uint16
	Firmware        uint16
	SectorsPerFrame uint8
	CCmd            uint8
	CSLen           uint16
}

const (
	CfgHeaderLen = 8

	cfgBufCntOffset   = 0
	cfgFirmwareOffset = 2
	cfgScntOffset     = 4
	cfgCCmdOffset     = 5
	cfgCSLenOffset    = 6
)

// Nibble extracts the command nibble from CCmd.
func (c CfgHeader) Nibble() uint8 { return c.CCmd & 0x0f }

func DecodeCfgHeader(buf []byte) CfgHeader {
	return CfgHeader{
		BufCnt:          binary.BigEndian.Uint16(buf[cfgBufCntOffset:]),
		Firmware:        binary.BigEndian.Uint16(buf[cfgFirmwareOffset:]),
		SectorsPerFrame: buf[cfgScntOffset],
		CCmd:            buf[cfgCCmdOffset],
		CSLen:           binary.BigEndian.Uint16(buf[cfgCSLenOffset:]),
	}
}

func EncodeCfgHeader(buf []byte, c CfgHeader) {
	binary.BigEndian.PutUint16(buf[cfgBufCntOffset:], c.BufCnt)
	binary.BigEndian.PutUint16(buf[cfgFirmwareOffset:], c.Firmware)
	buf[cfgScntOffset] = c.SectorsPerFrame
	buf[cfgCCmdOffset] = c.CCmd
	binary.BigEndian.PutUint16(buf[cfgCSLenOffset:], c.CSLen)
}

// ATA command/status codes, shared with the mdlayher/aoe rendering of the
// same wire values.
const (
	ATAErrAbort = 0x04
	ATAErrIDNF  = 0x10
	ATAErrUNC   = 0x40

	ATAStatusErr  = 0x01
	ATAStatusDF   = 0x20
	ATAStatusDRDY = 0x40

	ATACmdPIORead28    = 0x20
	ATACmdPIORead48    = 0x24
	ATACmdPIOWrite28   = 0x30
	ATACmdPIOWrite48   = 0x34
	ATACmdIdentify     = 0xEC
	ATACmdFlush        = 0xE7
	ATACmdCheckPower   = 0xE5
	LBA28Mask      uint64 = 0x0FFFFFFF
	LBA48Mask      uint64 = 0x0000FFFFFFFFFFFF
)

// AtaHeader is the ATA sub-header. Data (the sector payload) is sliced
// separately from the frame buffer following it.
type AtaHeader struct {
	AFlags    uint8
	ErrFeat   uint8
	SCnt      uint8
	CmdStat   uint8
	LBA       [6]byte
	Reserved  uint16
}

const (
	AtaHeaderLen = 12

	ataAFlagsOffset   = 0
	ataErrFeatOffset  = 1
	ataSCntOffset     = 2
	ataCmdStatOffset  = 3
	ataLBAOffset      = 4
	ataReservedOffset = 10

	// AtaFlagWrite marks a request as carrying write data (set by the
	// initiator; unused by this server, which dispatches on CmdStat).
	AtaFlagWrite = 0x01
)

func DecodeAtaHeader(buf []byte) AtaHeader {
	var h AtaHeader
	h.AFlags = buf[ataAFlagsOffset]
	h.ErrFeat = buf[ataErrFeatOffset]
	h.SCnt = buf[ataSCntOffset]
	h.CmdStat = buf[ataCmdStatOffset]
	copy(h.LBA[:], buf[ataLBAOffset:ataLBAOffset+6])
	h.Reserved = binary.LittleEndian.Uint16(buf[ataReservedOffset:])
	return h
}

func EncodeAtaHeader(buf []byte, h AtaHeader) {
	buf[ataAFlagsOffset] = h.AFlags
	buf[ataErrFeatOffset] = h.ErrFeat
	buf[ataSCntOffset] = h.SCnt
	buf[ataCmdStatOffset] = h.CmdStat
	copy(buf[ataLBAOffset:], h.LBA[:])
	binary.LittleEndian.PutUint16(buf[ataReservedOffset:], h.Reserved)
}

// LBAValue decodes the little-endian 48-bit logical block address, masked to
// either 28 or 48 bits depending on the command.
func (h AtaHeader) LBAValue(mask uint64) uint64 {
	b := [8]byte{h.LBA[0], h.LBA[1], h.LBA[2], h.LBA[3], h.LBA[4], h.LBA[5], 0, 0}
	return binary.LittleEndian.Uint64(b[:]) & mask
}

// SetLBA encodes lba into the little-endian 48-bit field.
func (h *AtaHeader) SetLBA(lba uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], lba)
	copy(h.LBA[:], b[:6])
}

// TreeHeader is the vendor tree sub-header. Data (the node payload) is
// sliced separately from the frame buffer following it.
type TreeHeader struct {
	TID uint64
	NID uint64
	Off uint64
	Len uint64
	Err uint32
}

const (
	TreeHeaderLen = 36

	treeTIDOffset = 0
	treeNIDOffset = 8
	treeOffOffset = 16
	treeLenOffset = 24
	treeErrOffset = 32
)

func DecodeTreeHeader(buf []byte) TreeHeader {
	return TreeHeader{
		TID: binary.BigEndian.Uint64(buf[treeTIDOffset:]),
		NID: binary.BigEndian.Uint64(buf[treeNIDOffset:]),
		Off: binary.BigEndian.Uint64(buf[treeOffOffset:]),
		Len: binary.BigEndian.Uint64(buf[treeLenOffset:]),
		Err: binary.BigEndian.Uint32(buf[treeErrOffset:]),
	}
}

func EncodeTreeHeader(buf []byte, h TreeHeader) {
	binary.BigEndian.PutUint64(buf[treeTIDOffset:], h.TID)
	binary.BigEndian.PutUint64(buf[treeNIDOffset:], h.NID)
	binary.BigEndian.PutUint64(buf[treeOffOffset:], h.Off)
	binary.BigEndian.PutUint64(buf[treeLenOffset:], h.Len)
	binary.BigEndian.PutUint32(buf[treeErrOffset:], h.Err)
}

