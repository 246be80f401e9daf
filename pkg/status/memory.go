package status

import (
	"context"
	"sort"
	"sync"

	"github.com/einkcast/einkcast/pkg/scheduler"
)

// MemorySink keeps the most recent outcome per job in memory. It backs the
// HTTP /outcomes endpoint.
type MemorySink struct {
	mu     sync.RWMutex
	latest map[string]scheduler.Outcome
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{latest: make(map[string]scheduler.Outcome)}
}

// Record stores the outcome as the job's latest.
func (m *MemorySink) Record(_ context.Context, outcome scheduler.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[outcome.Job] = outcome
}

// Latest returns each job's most recent outcome, ordered by job name.
func (m *MemorySink) Latest() []scheduler.Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outcomes := make([]scheduler.Outcome, 0, len(m.latest))
	for _, o := range m.latest {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Job < outcomes[j].Job })
	return outcomes
}
