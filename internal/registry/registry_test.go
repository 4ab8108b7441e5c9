package registry

import "testing"

type fakeBackend struct{ size int64 }

func (f *fakeBackend) ReadAt(p []byte, off int64) (int, error)  { return len(p), nil }
func (f *fakeBackend) WriteAt(p []byte, off int64) (int, error) { return len(p), nil }
func (f *fakeBackend) Size() int64                              { return f.size }
func (f *fakeBackend) Close() error                             { return nil }
func (f *fakeBackend) Flush() error                             { return nil }

func newTestTarget(iface string, major uint16, minor uint8) *Target {
	return NewTarget(major, minor, iface, &fakeBackend{size: 1024 * 1024}, nil)
}

func TestRegistry_AddGetRemove(t *testing.T) {
	r := New()
	tgt := newTestTarget("eth0", 1, 2)

	if !r.Add(tgt) {
		t.Fatal("Add should succeed for a new target")
	}
	if r.Add(newTestTarget("eth0", 1, 2)) {
		t.Fatal("Add should fail for a duplicate (iface, major, minor)")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	got := r.Get("eth0", 1, 2)
	if got != tgt {
		t.Fatal("Get should return the added target")
	}

	removed := r.Remove("eth0", 1, 2)
	if removed != tgt {
		t.Fatal("Remove should return the removed target")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after remove", r.Len())
	}
	if r.Remove("eth0", 1, 2) != nil {
		t.Fatal("Remove on a missing target should return nil")
	}
}

func TestRegistry_ForEachMatching_Wildcards(t *testing.T) {
	r := New()
	a := newTestTarget("eth0", 1, 0)
	b := newTestTarget("eth0", 1, 1)
	c := newTestTarget("eth0", 2, 0)
	r.Add(a)
	r.Add(b)
	r.Add(c)

	var exact []*Target
	r.ForEachMatching("eth0", 1, 0, func(t *Target) { exact = append(exact, t) })
	if len(exact) != 1 || exact[0] != a {
		t.Fatalf("exact match: got %v, want [a]", exact)
	}

	var majorBroadcast []*Target
	r.ForEachMatching("eth0", 0xFFFF, 0, func(t *Target) { majorBroadcast = append(majorBroadcast, t) })
	if len(majorBroadcast) != 2 {
		t.Fatalf("major wildcard: got %d matches, want 2 (a, c)", len(majorBroadcast))
	}

	var minorBroadcast []*Target
	r.ForEachMatching("eth0", 1, 0xFF, func(t *Target) { minorBroadcast = append(minorBroadcast, t) })
	if len(minorBroadcast) != 2 {
		t.Fatalf("minor wildcard: got %d matches, want 2 (a, b)", len(minorBroadcast))
	}

	var otherIface []*Target
	r.ForEachMatching("eth1", 1, 0, func(t *Target) { otherIface = append(otherIface, t) })
	if len(otherIface) != 0 {
		t.Fatalf("different interface should never match, got %d", len(otherIface))
	}
}

func TestTarget_ConfigRoundTrip(t *testing.T) {
	tgt := newTestTarget("eth0", 1, 0)
	if len(tgt.Config()) != 0 {
		t.Fatal("new target should have empty config")
	}

	tgt.SetConfig([]byte("hello"))
	if got := string(tgt.Config()); got != "hello" {
		t.Fatalf("Config() = %q, want %q", got, "hello")
	}
}
