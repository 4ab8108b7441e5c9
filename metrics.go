package kvtree

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks performance and operational statistics for a Service
// using atomic counters updated from the I/O path, covering this
// server's ATA/CFG/tree operation mix.
type Metrics struct {
	ATAReadOps   atomic.Uint64
	ATAWriteOps  atomic.Uint64
	ATAFlushOps  atomic.Uint64
	ATAReadBytes atomic.Uint64
	ATAWriteBytes atomic.Uint64
	ATAErrors    atomic.Uint64

	CFGOps    atomic.Uint64
	CFGErrors atomic.Uint64

	TreeOps    [8]atomic.Uint64 // indexed by wire command code
	TreeErrors atomic.Uint64

	BusyTargets atomic.Uint32 // count of requests dropped for slot-table congestion

	StartTime atomic.Int64
}

// NewMetrics creates a new, zeroed metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordATARead(bytes uint64, success bool) {
	m.ATAReadOps.Add(1)
	if success {
		m.ATAReadBytes.Add(bytes)
	} else {
		m.ATAErrors.Add(1)
	}
}

func (m *Metrics) recordATAWrite(bytes uint64, success bool) {
	m.ATAWriteOps.Add(1)
	if success {
		m.ATAWriteBytes.Add(bytes)
	} else {
		m.ATAErrors.Add(1)
	}
}

func (m *Metrics) recordATAFlush(success bool) {
	m.ATAFlushOps.Add(1)
	if !success {
		m.ATAErrors.Add(1)
	}
}

func (m *Metrics) recordCFG(success bool) {
	m.CFGOps.Add(1)
	if !success {
		m.CFGErrors.Add(1)
	}
}

func (m *Metrics) recordTree(cmd uint8, success bool) {
	if int(cmd) < len(m.TreeOps) {
		m.TreeOps[cmd].Add(1)
	}
	if !success {
		m.TreeErrors.Add(1)
	}
}

func (m *Metrics) recordBusy(depth uint32) {
	m.BusyTargets.Add(1)
}

// MetricsSnapshot is a point-in-time copy of Metrics suitable for
// logging or JSON encoding.
type MetricsSnapshot struct {
	ATAReadOps, ATAWriteOps, ATAFlushOps       uint64
	ATAReadBytes, ATAWriteBytes, ATAErrors     uint64
	CFGOps, CFGErrors                          uint64
	TreeOps                                    [8]uint64
	TreeErrors                                 uint64
	BusyTargets                                uint32
	UptimeNs                                   uint64
}

// Snapshot returns a consistent-enough point-in-time copy of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		ATAReadOps:    m.ATAReadOps.Load(),
		ATAWriteOps:   m.ATAWriteOps.Load(),
		ATAFlushOps:   m.ATAFlushOps.Load(),
		ATAReadBytes:  m.ATAReadBytes.Load(),
		ATAWriteBytes: m.ATAWriteBytes.Load(),
		ATAErrors:     m.ATAErrors.Load(),
		CFGOps:        m.CFGOps.Load(),
		CFGErrors:     m.CFGErrors.Load(),
		TreeErrors:    m.TreeErrors.Load(),
		BusyTargets:   m.BusyTargets.Load(),
		UptimeNs:      uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
	for i := range m.TreeOps {
		s.TreeOps[i] = m.TreeOps[i].Load()
	}
	return s
}

// MetricsObserver implements interfaces.Observer by recording into the
// built-in Metrics struct.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver wraps m as an Observer.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveATARead(bytes uint64, _ uint64, success bool)  { o.metrics.recordATARead(bytes, success) }
func (o *MetricsObserver) ObserveATAWrite(bytes uint64, _ uint64, success bool) { o.metrics.recordATAWrite(bytes, success) }
func (o *MetricsObserver) ObserveATAFlush(_ uint64, success bool)               { o.metrics.recordATAFlush(success) }
func (o *MetricsObserver) ObserveCFG(_ uint64, success bool)                    { o.metrics.recordCFG(success) }
func (o *MetricsObserver) ObserveTreeOp(cmd uint8, _ uint64, success bool)      { o.metrics.recordTree(cmd, success) }
func (o *MetricsObserver) ObserveBusy(depth uint32)                            { o.metrics.recordBusy(depth) }

// NoOpObserver discards every observation; used when no Observer is
// configured.
type NoOpObserver struct{}

func (NoOpObserver) ObserveATARead(uint64, uint64, bool)  {}
func (NoOpObserver) ObserveATAWrite(uint64, uint64, bool) {}
func (NoOpObserver) ObserveATAFlush(uint64, bool)         {}
func (NoOpObserver) ObserveCFG(uint64, bool)              {}
func (NoOpObserver) ObserveTreeOp(uint8, uint64, bool)    {}
func (NoOpObserver) ObserveBusy(uint32)                   {}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)

// PrometheusCollector exposes a Metrics struct as a prometheus.Collector,
// letting the atomic counters be scraped without displacing the atomic
// hot path.
type PrometheusCollector struct {
	metrics *Metrics

	ataOps    *prometheus.Desc
	ataBytes  *prometheus.Desc
	ataErrors *prometheus.Desc
	cfgOps    *prometheus.Desc
	treeOps   *prometheus.Desc
	busy      *prometheus.Desc
}

// NewPrometheusCollector wraps m for registration with a
// prometheus.Registry.
func NewPrometheusCollector(m *Metrics) *PrometheusCollector {
	return &PrometheusCollector{
		metrics:   m,
		ataOps:    prometheus.NewDesc("kvtree_ata_ops_total", "ATA operations by kind", []string{"op"}, nil),
		ataBytes:  prometheus.NewDesc("kvtree_ata_bytes_total", "ATA bytes transferred by direction", []string{"direction"}, nil),
		ataErrors: prometheus.NewDesc("kvtree_ata_errors_total", "ATA operation errors", nil, nil),
		cfgOps:    prometheus.NewDesc("kvtree_cfg_ops_total", "CFG sub-commands served", nil, nil),
		treeOps:   prometheus.NewDesc("kvtree_tree_ops_total", "Tree commands served by command code", []string{"cmd"}, nil),
		busy:      prometheus.NewDesc("kvtree_busy_targets_total", "Requests dropped due to slot-table congestion", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ataOps
	ch <- c.ataBytes
	ch <- c.ataErrors
	ch <- c.cfgOps
	ch <- c.treeOps
	ch <- c.busy
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.metrics.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.ataOps, prometheus.CounterValue, float64(s.ATAReadOps), "read")
	ch <- prometheus.MustNewConstMetric(c.ataOps, prometheus.CounterValue, float64(s.ATAWriteOps), "write")
	ch <- prometheus.MustNewConstMetric(c.ataOps, prometheus.CounterValue, float64(s.ATAFlushOps), "flush")
	ch <- prometheus.MustNewConstMetric(c.ataBytes, prometheus.CounterValue, float64(s.ATAReadBytes), "read")
	ch <- prometheus.MustNewConstMetric(c.ataBytes, prometheus.CounterValue, float64(s.ATAWriteBytes), "write")
	ch <- prometheus.MustNewConstMetric(c.ataErrors, prometheus.CounterValue, float64(s.ATAErrors))
	ch <- prometheus.MustNewConstMetric(c.cfgOps, prometheus.CounterValue, float64(s.CFGOps))
	for i, n := range s.TreeOps {
		if n == 0 {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.treeOps, prometheus.CounterValue, float64(n), treeCmdName(uint8(i)))
	}
	ch <- prometheus.MustNewConstMetric(c.busy, prometheus.CounterValue, float64(s.BusyTargets))
}

func treeCmdName(cmd uint8) string {
	switch cmd {
	case 2:
		return "create_tree"
	case 3:
		return "remove_tree"
	case 4:
		return "insert_node"
	case 5:
		return "update_node"
	case 6:
		return "read_node"
	case 7:
		return "remove_node"
	default:
		return "unknown"
	}
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)
