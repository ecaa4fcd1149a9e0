package feed

import (
	"sort"
	"sync"
	"time"

	"github.com/matchpulse/matchpulse/internal/domain/types"
)

// Performance monitor constants.
const (
	defaultMonitorCapacity   = 1000
	trailingWindow           = 20
	defaultDegradedThreshold = 500 * time.Millisecond
)

// Monitor records frame-handling durations in a bounded ring and summarizes
// them. Degradation is judged on the trailing window so one old spike does
// not poison the signal.
type Monitor struct {
	mu        sync.Mutex
	samples   []time.Duration
	head      int
	count     int
	capacity  int
	threshold time.Duration
}

// NewMonitor creates a monitor retaining up to capacity samples.
func NewMonitor(capacity int) *Monitor {
	if capacity <= 0 {
		capacity = defaultMonitorCapacity
	}
	return &Monitor{
		samples:   make([]time.Duration, capacity),
		capacity:  capacity,
		threshold: defaultDegradedThreshold,
	}
}

// SetDegradedThreshold overrides the trailing-average latency above which
// handling is reported degraded.
func (m *Monitor) SetDegradedThreshold(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.threshold = d
	}
}

// Record adds one duration sample, evicting the oldest when full.
func (m *Monitor) Record(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.head] = d
	m.head = (m.head + 1) % m.capacity
	if m.count < m.capacity {
		m.count++
	}
}

// Metrics summarizes the retained samples.
func (m *Monitor) Metrics() types.PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return types.PerformanceMetrics{}
	}

	ordered := m.inOrder()

	var sum time.Duration
	minD, maxD := ordered[0], ordered[0]
	for _, d := range ordered {
		sum += d
		if d < minD {
			minD = d
		}
		if d > maxD {
			maxD = d
		}
	}

	sorted := make([]time.Duration, len(ordered))
	copy(sorted, ordered)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	p95 := sorted[int(0.95*float64(len(sorted)-1))]

	return types.PerformanceMetrics{
		Count:    m.count,
		AvgMs:    toMs(sum) / float64(m.count),
		MinMs:    toMs(minD),
		MaxMs:    toMs(maxD),
		P95Ms:    toMs(p95),
		Degraded: m.trailingAvg(ordered) > m.threshold,
	}
}

// Degraded reports whether the trailing window average exceeds the threshold.
func (m *Monitor) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return false
	}
	return m.trailingAvg(m.inOrder()) > m.threshold
}

// Reset discards all samples.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = 0
	m.count = 0
}

// inOrder returns retained samples oldest-first. Caller holds the lock.
func (m *Monitor) inOrder() []time.Duration {
	out := make([]time.Duration, m.count)
	start := (m.head - m.count + m.capacity) % m.capacity
	for i := 0; i < m.count; i++ {
		out[i] = m.samples[(start+i)%m.capacity]
	}
	return out
}

// trailingAvg averages the most recent samples. Caller holds the lock.
func (m *Monitor) trailingAvg(ordered []time.Duration) time.Duration {
	n := trailingWindow
	if n > len(ordered) {
		n = len(ordered)
	}
	var sum time.Duration
	for _, d := range ordered[len(ordered)-n:] {
		sum += d
	}
	return sum / time.Duration(n)
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
