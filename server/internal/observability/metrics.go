package observability

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and aggregates per-endpoint request metrics.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	endpoints map[string]*EndpointMetrics

	// durations keeps the most recent request durations for percentiles.
	durations    []time.Duration
	maxDurations int
}

// EndpointMetrics represents metrics for one endpoint.
type EndpointMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		endpoints:    make(map[string]*EndpointMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a finished request.
func (m *Metrics) RecordRequest(endpoint string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	em := m.endpoint(endpoint)
	em.requestCount.Add(1)
	em.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		em.errorCount.Add(1)
	}

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

func (m *Metrics) endpoint(name string) *EndpointMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	em, ok := m.endpoints[name]
	if !ok {
		em = &EndpointMetrics{}
		m.endpoints[name] = em
	}
	return em
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.endpoints = make(map[string]*EndpointMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	endpoints := make(map[string]*EndpointSnapshot, len(m.endpoints))
	for name, em := range m.endpoints {
		count := em.requestCount.Load()
		es := &EndpointSnapshot{
			RequestCount: count,
			ErrorCount:   em.errorCount.Load(),
		}
		if count > 0 {
			es.AvgLatencyMs = em.totalDuration.Load() / count
		}
		endpoints[name] = es
	}

	sorted := slices.Clone(m.durations)
	slices.Sort(sorted)
	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		P50LatencyMs:  percentile(sorted, 50),
		P95LatencyMs:  percentile(sorted, 95),
		Endpoints:     endpoints,
	}
}

func percentile(sorted []time.Duration, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	i := (len(sorted)*p+99)/100 - 1
	if i < 0 {
		i = 0
	}
	return sorted[i].Milliseconds()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                        `json:"request_total"`
	RequestFailed int64                        `json:"request_failed"`
	P50LatencyMs  int64                        `json:"p50_latency_ms"`
	P95LatencyMs  int64                        `json:"p95_latency_ms"`
	Endpoints     map[string]*EndpointSnapshot `json:"endpoints"`
}

// EndpointSnapshot represents metrics for one endpoint.
type EndpointSnapshot struct {
	RequestCount int64 `json:"request_count"`
	ErrorCount   int64 `json:"error_count"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
