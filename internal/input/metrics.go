package input

import (
	"sync"
	"sync/atomic"
	"time"
)

// latencySamples is the size of the key latency ring buffer.
const latencySamples = 256

// Metrics tracks key matching activity.
type Metrics struct {
	keyEventsTotal   atomic.Uint64
	firedTotal       atomic.Uint64
	suppressedTotal  atomic.Uint64
	filteredTotal    atomic.Uint64
	unmatchedTotal   atomic.Uint64
	sequencesArmed   atomic.Uint64
	sequenceTimeouts atomic.Uint64
	hookConsumptions atomic.Uint64

	mu         sync.Mutex
	latencies  [latencySamples]time.Duration
	latencyIdx int
	latencyLen int
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordKeyEvent records a matched key event with its processing time.
func (m *Metrics) RecordKeyEvent(latency time.Duration) {
	m.keyEventsTotal.Add(1)

	m.mu.Lock()
	m.latencies[m.latencyIdx] = latency
	m.latencyIdx = (m.latencyIdx + 1) % latencySamples
	if m.latencyLen < latencySamples {
		m.latencyLen++
	}
	m.mu.Unlock()
}

// RecordFired records a callback invocation.
func (m *Metrics) RecordFired() { m.firedTotal.Add(1) }

// RecordSuppressed records a call dropped by a throttle or debounce limiter.
func (m *Metrics) RecordSuppressed() { m.suppressedTotal.Add(1) }

// RecordFiltered records a candidate rejected by its selector.
func (m *Metrics) RecordFiltered() { m.filteredTotal.Add(1) }

// RecordUnmatched records an event that matched no trigger.
func (m *Metrics) RecordUnmatched() { m.unmatchedTotal.Add(1) }

// RecordSequenceArmed records a starter key arming its sequence ends.
func (m *Metrics) RecordSequenceArmed() { m.sequencesArmed.Add(1) }

// RecordSequenceTimeout records an armed sequence expiring.
func (m *Metrics) RecordSequenceTimeout() { m.sequenceTimeouts.Add(1) }

// RecordHookConsumption records when a hook consumes an event.
func (m *Metrics) RecordHookConsumption() { m.hookConsumptions.Add(1) }

// MetricsSnapshot holds a point-in-time view of metrics.
type MetricsSnapshot struct {
	KeyEventsTotal   uint64
	Fired            uint64
	Suppressed       uint64
	Filtered         uint64
	Unmatched        uint64
	SequencesArmed   uint64
	SequenceTimeouts uint64
	HookConsumptions uint64

	// Over the most recent key events.
	AvgKeyLatency time.Duration
	MaxKeyLatency time.Duration
}

// Snapshot returns a point-in-time view of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		KeyEventsTotal:   m.keyEventsTotal.Load(),
		Fired:            m.firedTotal.Load(),
		Suppressed:       m.suppressedTotal.Load(),
		Filtered:         m.filteredTotal.Load(),
		Unmatched:        m.unmatchedTotal.Load(),
		SequencesArmed:   m.sequencesArmed.Load(),
		SequenceTimeouts: m.sequenceTimeouts.Load(),
		HookConsumptions: m.hookConsumptions.Load(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.latencyLen == 0 {
		return snap
	}
	var sum time.Duration
	for _, l := range m.latencies[:m.latencyLen] {
		sum += l
		if l > snap.MaxKeyLatency {
			snap.MaxKeyLatency = l
		}
	}
	snap.AvgKeyLatency = sum / time.Duration(m.latencyLen)
	return snap
}
