package wire

import "testing"

func TestIsTreeCommand(t *testing.T) {
	tests := []struct {
		cmd  uint8
		want bool
	}{
		{CommandATA, false},
		{CommandCfg, false},
		{CommandCreateTree, true},
		{CommandRemoveTree, true},
		{CommandInsertNode, true},
		{CommandUpdateNode, true},
		{CommandReadNode, true},
		{CommandRemoveNode, true},
		{0x08, false},
	}
	for _, tt := range tests {
		if got := IsTreeCommand(tt.cmd); got != tt.want {
			t.Errorf("IsTreeCommand(0x%02x) = %v, want %v", tt.cmd, got, tt.want)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Flags: FlagResponse, Err: 0, Major: 0x1234, Minor: 0x56, Cmd: CommandATA, Tag: 0xdeadbeef}
	buf := make([]byte, HeaderLen)
	EncodeHeader(buf, h)

	got := DecodeHeader(buf)
	if got.Major != h.Major || got.Minor != h.Minor || got.Cmd != h.Cmd || got.Tag != h.Tag {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
	if got.Flags != FlagResponse {
		t.Errorf("Flags = 0x%x, want 0x%x", got.Flags, FlagResponse)
	}
	if !got.Version {
		t.Error("Version should decode true for ProtocolVersion-tagged header")
	}
}

func TestSetResponseFlagAndSetError(t *testing.T) {
	buf := make([]byte, HeaderLen)
	SetResponseFlag(buf)
	if !ResponseFlagSet(buf) {
		t.Fatal("ResponseFlagSet should be true after SetResponseFlag")
	}

	SetError(buf, AOEERR_CFG)
	h := DecodeHeader(buf)
	if h.Err != AOEERR_CFG {
		t.Errorf("Err = %d, want %d", h.Err, AOEERR_CFG)
	}
	if h.Flags&FlagError == 0 {
		t.Error("expected FlagError set after SetError")
	}
}

func TestSwapEthernetAddrsAndBroadcast(t *testing.T) {
	buf := make([]byte, EthHeaderLen)
	src := [EthAddrLen]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	copy(buf[0:6], []byte{1, 2, 3, 4, 5, 6}) // original dst
	copy(buf[6:12], []byte{7, 8, 9, 10, 11, 12}) // original src

	SwapEthernetAddrs(buf, src)
	if buf[0] != 7 || buf[5] != 12 {
		t.Errorf("expected dst to become original src, got %v", buf[0:6])
	}
	for i := 0; i < EthAddrLen; i++ {
		if buf[6+i] != src[i] {
			t.Errorf("expected src %v, got %v", src, buf[6:12])
		}
	}

	buf2 := make([]byte, EthHeaderLen)
	SetBroadcastDst(buf2, src)
	for i := 0; i < EthAddrLen; i++ {
		if buf2[i] != 0xFF {
			t.Errorf("expected broadcast dst, got %v", buf2[0:6])
		}
	}
}

func TestCfgHeaderRoundTrip(t *testing.T) {
	c := CfgHeader{BufCnt: 16, Firmware: 0x0002, SectorsPerFrame: 2, CCmd: CfgFSet, CSLen: 4}
	buf := make([]byte, CfgHeaderLen)
	EncodeCfgHeader(buf, c)

	got := DecodeCfgHeader(buf)
	if got != c {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, c)
	}
	if got.Nibble() != CfgFSet {
		t.Errorf("Nibble() = %d, want %d", got.Nibble(), CfgFSet)
	}
}

func TestAtaHeaderRoundTripAndLBA(t *testing.T) {
	h := AtaHeader{AFlags: 0, ErrFeat: 0, SCnt: 8, CmdStat: ATACmdPIORead28}
	h.SetLBA(0x0FFFFFFF)

	buf := make([]byte, AtaHeaderLen)
	EncodeAtaHeader(buf, h)
	got := DecodeAtaHeader(buf)

	if got.SCnt != 8 || got.CmdStat != ATACmdPIORead28 {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if lba := got.LBAValue(LBA28Mask); lba != 0x0FFFFFFF {
		t.Errorf("LBAValue(LBA28Mask) = 0x%x, want 0x0FFFFFFF", lba)
	}

	h.SetLBA(0x0000FFFFFFFFFFFF)
	buf2 := make([]byte, AtaHeaderLen)
	EncodeAtaHeader(buf2, h)
	got2 := DecodeAtaHeader(buf2)
	if lba := got2.LBAValue(LBA48Mask); lba != 0x0000FFFFFFFFFFFF {
		t.Errorf("LBAValue(LBA48Mask) = 0x%x, want 0x0000FFFFFFFFFFFF", lba)
	}
}

func TestTreeHeaderRoundTrip(t *testing.T) {
	h := TreeHeader{TID: 1, NID: 2, Off: 512, Len: 128, Err: 0}
	buf := make([]byte, TreeHeaderLen)
	EncodeTreeHeader(buf, h)

	got := DecodeTreeHeader(buf)
	if got != h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
}
