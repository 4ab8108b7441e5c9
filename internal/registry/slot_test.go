package registry

import "testing"

func TestSlotTable_AllocRelease(t *testing.T) {
	var st SlotTable

	idx, ok := st.Alloc(42)
	if !ok {
		t.Fatal("expected Alloc to succeed on an empty table")
	}
	if st.Busy() != 1 {
		t.Fatalf("Busy() = %d, want 1", st.Busy())
	}

	if !st.Release(idx, 42) {
		t.Fatal("Release with matching tag should succeed")
	}
	if st.Busy() != 0 {
		t.Fatalf("Busy() = %d, want 0 after release", st.Busy())
	}
}

func TestSlotTable_ReleaseWrongTagIsNoOp(t *testing.T) {
	var st SlotTable
	idx, _ := st.Alloc(1)

	if st.Release(idx, 2) {
		t.Fatal("Release with mismatched tag should fail")
	}
	if st.Busy() != 1 {
		t.Fatalf("Busy() = %d, want 1 (slot still held)", st.Busy())
	}
}

func TestSlotTable_ExhaustionDrops(t *testing.T) {
	var st SlotTable
	for i := 0; i < 16; i++ {
		if _, ok := st.Alloc(uint32(i)); !ok {
			t.Fatalf("Alloc %d should succeed within the 16-slot budget", i)
		}
	}
	if _, ok := st.Alloc(99); ok {
		t.Fatal("17th Alloc should fail (congestion/drop)")
	}
}

func TestSlotTable_Drain(t *testing.T) {
	var st SlotTable
	idx, _ := st.Alloc(7)

	polls := 0
	done := make(chan struct{})
	go func() {
		st.Drain(func() {
			polls++
			if polls == 1 {
				st.Release(idx, 7)
			}
		})
		close(done)
	}()
	<-done

	if polls == 0 {
		t.Error("expected Drain to poll at least once")
	}
	if st.Busy() != 0 {
		t.Errorf("Busy() = %d, want 0 after drain", st.Busy())
	}
}
