package admin

import (
	"testing"

	"github.com/clydefs/kvtree"
)

func newTestListener() *Listener {
	svc := kvtree.NewService(kvtree.Options{})
	return NewListener(svc, nil)
}

func TestHandleLine_UnknownVerb(t *testing.T) {
	l := newTestListener()
	if got := l.handleLine("frobnicate 1 2 eth0"); got != "-EINVAL" {
		t.Fatalf("got %q, want -EINVAL", got)
	}
}

func TestHandleLine_EmptyLine(t *testing.T) {
	l := newTestListener()
	if got := l.handleLine("   "); got != "-EINVAL" {
		t.Fatalf("got %q, want -EINVAL", got)
	}
}

func TestHandleLine_CollapsesWhitespace(t *testing.T) {
	l := newTestListener()
	// Extra runs of whitespace between tokens must not change parsing,
	// matching kvblade_sysfs_args's tokenizer.
	got := l.handleLine("show   1   2   eth0   scnt")
	if got != "-ENOENT" {
		t.Fatalf("got %q, want -ENOENT (no such target)", got)
	}
}

func TestHandleAdd_WrongArgCount(t *testing.T) {
	l := newTestListener()
	if got := l.handleAdd([]string{"1", "2", "eth0"}); got != "-EINVAL" {
		t.Fatalf("got %q, want -EINVAL", got)
	}
}

func TestHandleAdd_BadAddress(t *testing.T) {
	l := newTestListener()
	if got := l.handleAdd([]string{"notanumber", "2", "eth0", "/tmp/x"}); got != "-EINVAL" {
		t.Fatalf("got %q, want -EINVAL", got)
	}
}

func TestHandleAdd_NonexistentPathReturnsENOENT(t *testing.T) {
	l := newTestListener()
	got := l.handleAdd([]string{"1", "2", "eth0", "/nonexistent/path/kvtree-test-disk"})
	if got != "-ENOENT" {
		t.Fatalf("got %q, want -ENOENT", got)
	}
}

func TestHandleDel_WrongArgCount(t *testing.T) {
	l := newTestListener()
	if got := l.handleDel([]string{"1", "2"}); got != "-EINVAL" {
		t.Fatalf("got %q, want -EINVAL", got)
	}
}

func TestHandleDel_NotFound(t *testing.T) {
	l := newTestListener()
	if got := l.handleDel([]string{"1", "2", "eth0"}); got != "-ENOENT" {
		t.Fatalf("got %q, want -ENOENT", got)
	}
}

func TestHandleShow_WrongArgCount(t *testing.T) {
	l := newTestListener()
	if got := l.handleShow([]string{"1", "2", "eth0"}); got != "-EINVAL" {
		t.Fatalf("got %q, want -EINVAL", got)
	}
}

func TestHandleShow_NotFound(t *testing.T) {
	l := newTestListener()
	if got := l.handleShow([]string{"1", "2", "eth0", "scnt"}); got != "-ENOENT" {
		t.Fatalf("got %q, want -ENOENT", got)
	}
}

func TestHandleStore_WrongArgCount(t *testing.T) {
	l := newTestListener()
	if got := l.handleStore([]string{"1", "2"}); got != "-EINVAL" {
		t.Fatalf("got %q, want -EINVAL", got)
	}
}

func TestHandleStore_NotFound(t *testing.T) {
	l := newTestListener()
	if got := l.handleStore([]string{"1", "2", "eth0", "model", "X"}); got != "-ENOENT" {
		t.Fatalf("got %q, want -ENOENT", got)
	}
}

func TestParseAddr(t *testing.T) {
	cases := []struct {
		major, minor string
		wantOK       bool
	}{
		{"1", "2", true},
		{"65535", "255", true},
		{"65536", "0", false}, // overflows uint16
		{"0", "256", false},   // overflows uint8
		{"abc", "0", false},
		{"0", "xyz", false},
	}
	for _, c := range cases {
		_, _, ok := parseAddr(c.major, c.minor)
		if ok != c.wantOK {
			t.Errorf("parseAddr(%q, %q) ok = %v, want %v", c.major, c.minor, ok, c.wantOK)
		}
	}
}
