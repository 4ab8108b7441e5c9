package queue

import (
	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/registry"
	"github.com/clydefs/kvtree/internal/wire"
)

// ataResult is the outcome of executing one ATA command against a
// target's backend, ready to be folded back into the ATA sub-header of
// the response frame.
type ataResult struct {
	Data    []byte
	Status  uint8
	ErrFeat uint8
}

func sectorCount(scnt uint8) int {
	if scnt == 0 {
		return 256
	}
	return int(scnt)
}

// executeATA translates one ATA sub-header into a backend call.
// Read/write are expected to be invoked from a dedicated goroutine per
// request by the caller, so that a slow backend never blocks the
// ingress classifier.
func executeATA(t *registry.Target, ata wire.AtaHeader, reqData []byte) ataResult {
	switch ata.CmdStat {
	case wire.ATACmdIdentify:
		size := t.Backend.Size()
		return ataResult{
			Data:   buildIdentify(t, uint64(size)/constants.SectorSize),
			Status: wire.ATAStatusDRDY,
		}

	case wire.ATACmdPIORead28, wire.ATACmdPIORead48:
		off, length, errResult := ataReadParams(t, ata)
		if errResult != nil {
			return *errResult
		}
		buf := make([]byte, length)
		if _, err := t.Backend.ReadAt(buf, off); err != nil {
			return ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrUNC}
		}
		return ataResult{Data: buf, Status: wire.ATAStatusDRDY}

	case wire.ATACmdPIOWrite28, wire.ATACmdPIOWrite48:
		off, length, errResult := ataWriteParams(t, ata, reqData)
		if errResult != nil {
			return *errResult
		}
		if _, err := t.Backend.WriteAt(reqData[:length], off); err != nil {
			return ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrUNC}
		}
		return ataResult{Status: wire.ATAStatusDRDY}

	case wire.ATACmdFlush:
		if err := t.Backend.Flush(); err != nil {
			return ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrUNC}
		}
		return ataResult{Status: wire.ATAStatusDRDY}

	case wire.ATACmdCheckPower:
		return ataResult{Status: wire.ATAStatusDRDY}

	default:
		return ataResult{Status: wire.ATAStatusErr, ErrFeat: wire.ATAErrAbort}
	}
}

// ataReadParams validates and resolves a PIO read's (offset, length)
// against t's backend capacity. errResult is non-nil if the request must
// be rejected without touching the backend.
func ataReadParams(t *registry.Target, ata wire.AtaHeader) (off int64, length int, errResult *ataResult) {
	mask := wire.LBA28Mask
	if ata.CmdStat == wire.ATACmdPIORead48 {
		mask = wire.LBA48Mask
	}
	lba := ata.LBAValue(mask)
	n := sectorCount(ata.SCnt)
	length = n * constants.SectorSize
	off = int64(lba) * constants.SectorSize

	if off+int64(length) > t.Backend.Size() {
		return 0, 0, &ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrIDNF}
	}
	return off, length, nil
}

// ataWriteParams validates and resolves a PIO write's (offset, length)
// against t's backend capacity, read-only state, and payload size.
// errResult is non-nil if the request must be rejected without touching
// the backend.
func ataWriteParams(t *registry.Target, ata wire.AtaHeader, reqData []byte) (off int64, length int, errResult *ataResult) {
	mask := wire.LBA28Mask
	if ata.CmdStat == wire.ATACmdPIOWrite48 {
		mask = wire.LBA48Mask
	}
	lba := ata.LBAValue(mask)
	n := sectorCount(ata.SCnt)
	length = n * constants.SectorSize
	off = int64(lba) * constants.SectorSize

	if off+int64(length) > t.Backend.Size() {
		return 0, 0, &ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrIDNF}
	}
	if t.ReadOnly {
		return 0, 0, &ataResult{Status: wire.ATAStatusErr | wire.ATAStatusDF, ErrFeat: wire.ATAErrAbort}
	}
	if len(reqData) < length {
		return 0, 0, &ataResult{Status: wire.ATAStatusErr, ErrFeat: wire.ATAErrAbort}
	}
	return off, length, nil
}
