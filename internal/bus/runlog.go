package bus

import (
	"context"
	"sync"
)

// MemoryStepLog is the in-process step log. It backs tests and deployments
// without Redis; memoization then survives re-deliveries but not a process
// restart.
type MemoryStepLog struct {
	mu   sync.RWMutex
	runs map[string]map[string][]byte
}

// NewMemoryStepLog creates an empty step log.
func NewMemoryStepLog() *MemoryStepLog {
	return &MemoryStepLog{runs: make(map[string]map[string][]byte)}
}

// Get returns the stored result for a step of a run, if any.
func (l *MemoryStepLog) Get(_ context.Context, runID, step string) ([]byte, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	steps, ok := l.runs[runID]
	if !ok {
		return nil, false, nil
	}
	raw, ok := steps[step]
	return raw, ok, nil
}

// Put stores the result for a step of a run.
func (l *MemoryStepLog) Put(_ context.Context, runID, step string, result []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	steps, ok := l.runs[runID]
	if !ok {
		steps = make(map[string][]byte)
		l.runs[runID] = steps
	}
	steps[step] = result
	return nil
}
