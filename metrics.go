package lockbox

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by the lockbox engine APIs.
type MetricID uint16

const (
	// MetricIssueSuccess is an exported constant or variable used by the session lock engine.
	MetricIssueSuccess MetricID = iota
	// MetricIssueRejected is an exported constant or variable used by the session lock engine.
	MetricIssueRejected
	// MetricRefreshSuccess is an exported constant or variable used by the session lock engine.
	MetricRefreshSuccess
	// MetricRefreshRejected is an exported constant or variable used by the session lock engine.
	MetricRefreshRejected
	// MetricRefreshReplay counts refresh attempts with a credential the store
	// no longer holds, either superseded by rotation or never issued.
	MetricRefreshReplay
	// MetricVerifySuccess is an exported constant or variable used by the session lock engine.
	MetricVerifySuccess
	// MetricVerifyRejected is an exported constant or variable used by the session lock engine.
	MetricVerifyRejected
	// MetricDeviceMismatch is an exported constant or variable used by the session lock engine.
	MetricDeviceMismatch
	// MetricGatewayAdmitted is an exported constant or variable used by the session lock engine.
	MetricGatewayAdmitted
	// MetricGatewayRejected is an exported constant or variable used by the session lock engine.
	MetricGatewayRejected
	// MetricVerifyLatency is an exported constant or variable used by the session lock engine.
	MetricVerifyLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricIssueSuccess:    "issue_success",
	MetricIssueRejected:   "issue_rejected",
	MetricRefreshSuccess:  "refresh_success",
	MetricRefreshRejected: "refresh_rejected",
	MetricRefreshReplay:   "refresh_replay",
	MetricVerifySuccess:   "verify_success",
	MetricVerifyRejected:  "verify_rejected",
	MetricDeviceMismatch:  "device_mismatch",
	MetricGatewayAdmitted: "gateway_admitted",
	MetricGatewayRejected: "gateway_rejected",
	MetricVerifyLatency:   "verify_latency",
}

// String describes the string operation and its observable behavior.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by the lockbox engine APIs.
//
// Metrics instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise. Counter updates are
// lock-free atomics; verification hot paths pay one add per call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot defines a public type used by the lockbox engine APIs.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state beyond its own counter and can be
// used concurrently from any number of goroutines.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe describes the observe operation and its observable behavior.
//
// Only [MetricVerifyLatency] carries a histogram; other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
