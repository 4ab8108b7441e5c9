package kvtree

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsObserver_RecordsCounts(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)

	o.ObserveATARead(512, 0, true)
	o.ObserveATARead(0, 0, false)
	o.ObserveATAWrite(1024, 0, true)
	o.ObserveATAFlush(0, true)
	o.ObserveCFG(0, true)
	o.ObserveTreeOp(2, 0, true)
	o.ObserveBusy(3)

	snap := m.Snapshot()
	if snap.ATAReadOps != 2 {
		t.Errorf("ATAReadOps = %d, want 2", snap.ATAReadOps)
	}
	if snap.ATAReadBytes != 512 {
		t.Errorf("ATAReadBytes = %d, want 512 (only the successful read counts)", snap.ATAReadBytes)
	}
	if snap.ATAErrors != 1 {
		t.Errorf("ATAErrors = %d, want 1", snap.ATAErrors)
	}
	if snap.ATAWriteOps != 1 || snap.ATAWriteBytes != 1024 {
		t.Errorf("ATAWriteOps/Bytes = %d/%d, want 1/1024", snap.ATAWriteOps, snap.ATAWriteBytes)
	}
	if snap.CFGOps != 1 {
		t.Errorf("CFGOps = %d, want 1", snap.CFGOps)
	}
	if snap.TreeOps[2] != 1 {
		t.Errorf("TreeOps[2] = %d, want 1", snap.TreeOps[2])
	}
	if snap.BusyTargets != 1 {
		t.Errorf("BusyTargets = %d, want 1", snap.BusyTargets)
	}
}

func TestMetricsObserver_ErrorsDoNotCountBytes(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)

	o.ObserveATAWrite(999, 0, false)
	snap := m.Snapshot()
	if snap.ATAWriteBytes != 0 {
		t.Fatalf("ATAWriteBytes = %d, want 0 for a failed write", snap.ATAWriteBytes)
	}
	if snap.ATAErrors != 1 {
		t.Fatalf("ATAErrors = %d, want 1", snap.ATAErrors)
	}
}

func TestNoOpObserver_DoesNotPanic(t *testing.T) {
	var o NoOpObserver
	o.ObserveATARead(1, 1, true)
	o.ObserveATAWrite(1, 1, true)
	o.ObserveATAFlush(1, true)
	o.ObserveCFG(1, true)
	o.ObserveTreeOp(2, 1, true)
	o.ObserveBusy(1)
}

func TestPrometheusCollector_DescribeAndCollect(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)
	o.ObserveATARead(512, 0, true)
	o.ObserveTreeOp(4, 0, true)

	c := NewPrometheusCollector(m)

	descCh := make(chan *prometheus.Desc, 16)
	c.Describe(descCh)
	close(descCh)
	count := 0
	for range descCh {
		count++
	}
	if count != 6 {
		t.Fatalf("Describe sent %d descriptors, want 6", count)
	}

	metricCh := make(chan prometheus.Metric, 32)
	c.Collect(metricCh)
	close(metricCh)
	got := 0
	for range metricCh {
		got++
	}
	if got == 0 {
		t.Fatal("Collect should emit at least one metric")
	}
}

func TestTreeCmdName(t *testing.T) {
	cases := map[uint8]string{
		2: "create_tree", 3: "remove_tree", 4: "insert_node",
		5: "update_node", 6: "read_node", 7: "remove_node", 99: "unknown",
	}
	for cmd, want := range cases {
		if got := treeCmdName(cmd); got != want {
			t.Errorf("treeCmdName(%d) = %q, want %q", cmd, got, want)
		}
	}
}
