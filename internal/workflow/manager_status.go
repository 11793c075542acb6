package workflow

import (
	"context"
	"time"

	"bleeparr/internal/queue"
	"bleeparr/internal/services/arr"
)

// SourceState reports the most recent fetch result for one source.
type SourceState struct {
	Name      string
	Kind      queue.Kind
	Enabled   bool
	Available bool
	LastError string
	CheckedAt time.Time
}

// StatusSummary represents lightweight workflow diagnostics. LastError only
// reflects the latest cycle.
type StatusSummary struct {
	Running     bool
	LastCycle   *CycleSummary
	NextCycleAt time.Time
	LastError   string
	LastItem    *queue.Item
	Sources     []SourceState
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastCycle != nil {
		cycle := *m.lastCycle
		summary.LastCycle = &cycle
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastItem != nil {
		item := *m.lastItem
		summary.LastItem = &item
	}
	states := make(map[string]SourceState, len(m.sourceState))
	for k, v := range m.sourceState {
		states[k] = v
	}
	m.mu.RUnlock()

	if summary.LastCycle != nil && m.settings != nil {
		summary.NextCycleAt = summary.LastCycle.StartedAt.Add(m.settings.PollInterval(ctx))
	}
	for _, source := range m.sources {
		state, ok := states[source.Name()]
		if !ok {
			state = SourceState{Name: source.Name(), Kind: source.Kind(), Enabled: source.Enabled(ctx)}
		}
		summary.Sources = append(summary.Sources, state)
	}
	return summary
}

func (m *Manager) recordCycle(summary CycleSummary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCycle = &summary
	if err != nil {
		m.lastErr = err
	}
}

func (m *Manager) recordSource(ctx context.Context, source arr.Adapter, err error) {
	state := SourceState{
		Name:      source.Name(),
		Kind:      source.Kind(),
		Enabled:   source.Enabled(ctx),
		CheckedAt: m.now(),
	}
	state.Available = state.Enabled && err == nil
	if err != nil {
		state.LastError = err.Error()
	}
	m.mu.Lock()
	m.sourceState[state.Name] = state
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copied := *item
		m.lastItem = &copied
	}
	m.mu.Unlock()
}
