package qthought

import "sync"

// Metrics collects run counters for a System and every branch cloned from
// it. Purely diagnostic; correctness never depends on them.
type Metrics struct {
	mu sync.RWMutex

	stepsExecuted       int64
	unitaryOps          int64
	measurements        int64
	branchesExplored    int64
	unreachableBranches int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	StepsExecuted       int64
	UnitaryOps          int64
	Measurements        int64
	BranchesExplored    int64
	UnreachableBranches int64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordStep() {
	m.mu.Lock()
	m.stepsExecuted++
	m.mu.Unlock()
}

func (m *Metrics) recordUnitary() {
	m.mu.Lock()
	m.unitaryOps++
	m.mu.Unlock()
}

func (m *Metrics) recordMeasurement() {
	m.mu.Lock()
	m.measurements++
	m.mu.Unlock()
}

func (m *Metrics) recordBranch() {
	m.mu.Lock()
	m.branchesExplored++
	m.mu.Unlock()
}

func (m *Metrics) recordUnreachable() {
	m.mu.Lock()
	m.unreachableBranches++
	m.mu.Unlock()
}

func (m *Metrics) snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		StepsExecuted:       m.stepsExecuted,
		UnitaryOps:          m.unitaryOps,
		Measurements:        m.measurements,
		BranchesExplored:    m.branchesExplored,
		UnreachableBranches: m.unreachableBranches,
	}
}
