package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for workflow execution.
type Metrics struct {
	mu            sync.Mutex
	runsStarted   map[string]int64
	runsSucceeded map[string]int64
	runsFailed    map[string]int64
	runsRetried   map[string]int64
	stepsExecuted map[string]int64
	stepsMemoized map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		runsStarted:   make(map[string]int64),
		runsSucceeded: make(map[string]int64),
		runsFailed:    make(map[string]int64),
		runsRetried:   make(map[string]int64),
		stepsExecuted: make(map[string]int64),
		stepsMemoized: make(map[string]int64),
	}
}

// RecordRunStart increments the started counter for a workflow.
func (m *Metrics) RecordRunStart(workflow string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runsStarted[workflow]++
}

// RecordRunOutcome increments the terminal counter for a workflow.
func (m *Metrics) RecordRunOutcome(workflow string, success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.runsSucceeded[workflow]++
	} else {
		m.runsFailed[workflow]++
	}
}

// RecordRetry increments the re-delivery counter for a workflow.
func (m *Metrics) RecordRetry(workflow string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runsRetried[workflow]++
}

// RecordStep increments per-step counters. Memoized hits are counted
// separately from fresh executions.
func (m *Metrics) RecordStep(workflow, step string, memoized bool) {
	if m == nil {
		return
	}
	key := workflow + "|" + step
	m.mu.Lock()
	defer m.mu.Unlock()
	if memoized {
		m.stepsMemoized[key]++
	} else {
		m.stepsExecuted[key]++
	}
}

// Snapshot returns a copy of all counters keyed by counter family.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]map[string]int64{
		"runs_started":   copyCounters(m.runsStarted),
		"runs_succeeded": copyCounters(m.runsSucceeded),
		"runs_failed":    copyCounters(m.runsFailed),
		"runs_retried":   copyCounters(m.runsRetried),
		"steps_executed": copyCounters(m.stepsExecuted),
		"steps_memoized": copyCounters(m.stepsMemoized),
	}
}

func copyCounters(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
