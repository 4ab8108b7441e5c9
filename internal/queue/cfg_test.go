package queue

import (
	"testing"

	"github.com/clydefs/kvtree/internal/wire"
)

func TestHandleCfg_ReadEchoesConfig(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	tgt.SetConfig([]byte("shelf-config"))

	res, data, _ := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgRead}, nil, 1500)
	if res != cfgRespond {
		t.Fatalf("result = %v, want cfgRespond", res)
	}
	if string(data) != "shelf-config" {
		t.Fatalf("data = %q, want %q", data, "shelf-config")
	}
}

func TestHandleCfg_TestMismatchDrops(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	tgt.SetConfig([]byte("expected"))

	res, _, _ := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgTest}, []byte("wrong"), 1500)
	if res != cfgDrop {
		t.Fatalf("result = %v, want cfgDrop on TEST mismatch", res)
	}
}

func TestHandleCfg_TestMatchRespondsWithConfig(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	tgt.SetConfig([]byte("expected"))

	res, data, _ := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgTest}, []byte("expected"), 1500)
	if res != cfgRespond {
		t.Fatalf("result = %v, want cfgRespond on TEST match", res)
	}
	if string(data) != "expected" {
		t.Fatalf("data = %q, want %q", data, "expected")
	}
}

func TestHandleCfg_PTestPrefixMatch(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	tgt.SetConfig([]byte("expected-config"))

	res, _, _ := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgPTest}, []byte("expected"), 1500)
	if res != cfgRespond {
		t.Fatalf("result = %v, want cfgRespond for a matching prefix", res)
	}

	res, _, _ = handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgPTest}, []byte("nomatch"), 1500)
	if res != cfgDrop {
		t.Fatalf("result = %v, want cfgDrop for a non-matching prefix", res)
	}
}

func TestHandleCfg_SetRejectsExistingConfig(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	tgt.SetConfig([]byte("already-set"))

	res, _, errCode := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgSet}, []byte("new"), 1500)
	if res != cfgError {
		t.Fatalf("result = %v, want cfgError", res)
	}
	if errCode != wire.AOEERR_CFG {
		t.Fatalf("errCode = %d, want AOEERR_CFG", errCode)
	}
	if string(tgt.Config()) != "already-set" {
		t.Fatal("SET against an existing config must not overwrite it")
	}
}

func TestHandleCfg_SetWithCurrentBlobIsNoOp(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	tgt.SetConfig([]byte("current"))

	res, data, _ := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgSet}, []byte("current"), 1500)
	if res != cfgRespond {
		t.Fatalf("result = %v, want cfgRespond when SET matches the current blob", res)
	}
	if string(data) != "current" {
		t.Fatalf("data = %q, want %q", data, "current")
	}
	if string(tgt.Config()) != "current" {
		t.Fatal("SET with the current blob must remain a no-op on the stored config")
	}
}

func TestHandleCfg_SetOnEmptyConfigSucceeds(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)

	res, data, _ := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgSet}, []byte("first-config"), 1500)
	if res != cfgRespond {
		t.Fatalf("result = %v, want cfgRespond", res)
	}
	if string(data) != "first-config" {
		t.Fatalf("data = %q, want %q", data, "first-config")
	}
}

func TestHandleCfg_FSetAlwaysOverwrites(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	tgt.SetConfig([]byte("old"))

	res, data, _ := handleCfg(tgt, wire.CfgHeader{CCmd: wire.CfgFSet}, []byte("new"), 1500)
	if res != cfgRespond {
		t.Fatalf("result = %v, want cfgRespond", res)
	}
	if string(data) != "new" {
		t.Fatalf("data = %q, want %q", data, "new")
	}
}

func TestHandleCfg_UnknownSubcommandErrors(t *testing.T) {
	tgt := newTestTarget(1, 2, 16)
	res, _, errCode := handleCfg(tgt, wire.CfgHeader{CCmd: 0x0F}, nil, 1500)
	if res != cfgError || errCode != wire.AOEERR_ARG {
		t.Fatalf("result = %v errCode = %d, want cfgError/AOEERR_ARG", res, errCode)
	}
}

func TestSectorsPerFrame(t *testing.T) {
	if got := sectorsPerFrame(1500); got == 0 {
		t.Fatal("sectorsPerFrame(1500) should be non-zero")
	}
	if got := sectorsPerFrame(60); got != 1 {
		t.Fatalf("sectorsPerFrame(60) = %d, want 1 (floor of one sector)", got)
	}
}
