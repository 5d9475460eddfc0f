package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for the orchestration core.
type Metrics struct {
	mu                   sync.Mutex
	orchestrationsOK     int64
	orchestrationsFailed int64
	tasksExecuted        map[string]int64
	tasksFailed          map[string]int64
	tasksCancelled       int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		tasksExecuted: make(map[string]int64),
		tasksFailed:   make(map[string]int64),
	}
}

// RecordOrchestration counts one completed creation pipeline.
func (m *Metrics) RecordOrchestration(success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.orchestrationsOK++
	} else {
		m.orchestrationsFailed++
	}
}

// RecordTask counts one executed scheduled task by action name.
func (m *Metrics) RecordTask(action string, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksExecuted[action]++
	if failed {
		m.tasksFailed[action]++
	}
}

// RecordCancellation counts one task cancellation request.
func (m *Metrics) RecordCancellation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksCancelled++
}

// Snapshot returns a copy of all counters keyed by name.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{
		"orchestrations_ok":     m.orchestrationsOK,
		"orchestrations_failed": m.orchestrationsFailed,
		"tasks_cancelled":       m.tasksCancelled,
	}
	for action, count := range m.tasksExecuted {
		out["tasks_executed|"+action] = count
	}
	for action, count := range m.tasksFailed {
		out["tasks_failed|"+action] = count
	}
	return out
}
