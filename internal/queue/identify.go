package queue

import (
	"encoding/binary"

	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/registry"
	"github.com/clydefs/kvtree/internal/wire"
)

// setString writes s, space-padded/truncated to wordCount*2 bytes, into
// the IDENTIFY buffer starting at the given word offset. ATA strings are
// byte-swapped within each word, matching the original's setfld helper.
func setString(buf []byte, wordOffset, wordCount int, s string) {
	field := make([]byte, wordCount*2)
	for i := range field {
		field[i] = ' '
	}
	copy(field, s)
	base := wordOffset * 2
	for i := 0; i < len(field); i += 2 {
		buf[base+i] = field[i+1]
		buf[base+i+1] = field[i]
	}
}

func setWord(buf []byte, word int, v uint16) {
	binary.LittleEndian.PutUint16(buf[word*2:], v)
}

// buildIdentify renders the 512-byte ATA IDENTIFY DEVICE response for t,
// following the fixed word layout the original kernel module wrote in
// ata_identify: capability flags in words 47/49/50/83/84/86/87/93, and
// sector counts in the 28-bit (60-61) and 48-bit (100-103) capacity
// fields.
func buildIdentify(t *registry.Target, sectorCount uint64) []byte {
	buf := make([]byte, constants.SectorSize)

	setString(buf, 10, 10, t.Serial)
	setString(buf, 23, 4, constants.IdentifyFirmwareRevision)
	setString(buf, 27, 20, t.Model)

	setWord(buf, 47, 0x8000) // bit15 reserved-one; max sectors per DRQ block
	setWord(buf, 49, 0x0200) // LBA supported
	setWord(buf, 50, 0x4000) // reserved, must be one

	lba28 := sectorCount
	if lba28 > wire.LBA28Mask {
		lba28 = wire.LBA28Mask
	}
	setWord(buf, 60, uint16(lba28))
	setWord(buf, 61, uint16(lba28>>16))

	setWord(buf, 83, 0x5400) // LBA48 supported
	setWord(buf, 84, 0x4000) // reserved, must be one
	setWord(buf, 86, 0x1400) // LBA48 enabled
	setWord(buf, 87, 0x4000) // reserved, must be one
	setWord(buf, 93, 0x400B) // hardware reset result, unused over AoE

	lba48 := sectorCount & wire.LBA48Mask
	setWord(buf, 100, uint16(lba48))
	setWord(buf, 101, uint16(lba48>>16))
	setWord(buf, 102, uint16(lba48>>32))
	setWord(buf, 103, uint16(lba48>>48))

	return buf
}
