package agent

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects handoff runtime counters.
// All operations are thread-safe for concurrent access.
type Metrics struct {
	runs       atomic.Int64
	hops       atomic.Int64
	handoffs   atomic.Int64
	hopLimits  atomic.Int64
	planSteps  atomic.Int64
	planFailed atomic.Int64

	mu           sync.RWMutex
	toolCalls    map[string]int64
	toolFailures map[string]int64
	toolLatency  map[string]time.Duration // cumulative
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		toolCalls:    make(map[string]int64),
		toolFailures: make(map[string]int64),
		toolLatency:  make(map[string]time.Duration),
	}
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(hops int, limitReached bool) {
	m.runs.Add(1)
	m.hops.Add(int64(hops))
	if limitReached {
		m.hopLimits.Add(1)
	}
}

// RecordHandoff records one transfer between agents.
func (m *Metrics) RecordHandoff() {
	m.handoffs.Add(1)
}

// RecordPlanStep records one executed plan step.
func (m *Metrics) RecordPlanStep(failed bool) {
	m.planSteps.Add(1)
	if failed {
		m.planFailed.Add(1)
	}
}

// RecordToolCall records a tool invocation.
func (m *Metrics) RecordToolCall(name string, failed bool, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls[name]++
	if failed {
		m.toolFailures[name]++
	}
	m.toolLatency[name] += latency
}

// ToolStats summarizes one tool.
type ToolStats struct {
	Calls        int64   `json:"calls"`
	Failures     int64   `json:"failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Runs            int64                `json:"runs"`
	AvgHops         float64              `json:"avg_hops"`
	Handoffs        int64                `json:"handoffs"`
	HopLimitReached int64                `json:"hop_limit_reached"`
	PlanSteps       int64                `json:"plan_steps"`
	PlanStepsFailed int64                `json:"plan_steps_failed"`
	Tools           map[string]ToolStats `json:"tools"`
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Runs:            m.runs.Load(),
		Handoffs:        m.handoffs.Load(),
		HopLimitReached: m.hopLimits.Load(),
		PlanSteps:       m.planSteps.Load(),
		PlanStepsFailed: m.planFailed.Load(),
		Tools:           map[string]ToolStats{},
	}
	if s.Runs > 0 {
		s.AvgHops = float64(m.hops.Load()) / float64(s.Runs)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, calls := range m.toolCalls {
		ts := ToolStats{Calls: calls, Failures: m.toolFailures[name]}
		if calls > 0 {
			ts.AvgLatencyMs = float64(m.toolLatency[name].Milliseconds()) / float64(calls)
		}
		s.Tools[name] = ts
	}
	return s
}
