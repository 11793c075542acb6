package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bleeparr/internal/censor"
	"bleeparr/internal/config"
	"bleeparr/internal/logging"
	"bleeparr/internal/notifications"
	"bleeparr/internal/queue"
	"bleeparr/internal/services/arr"
)

// Resolver maps a reported path to a local file.
type Resolver interface {
	Resolve(ctx context.Context, reported string) (string, bool)
}

// Runner invokes the censoring tool.
type Runner interface {
	Run(ctx context.Context, path string, meta censor.Metadata, cfg censor.Config, dryRun bool) censor.Outcome
}

// Settings exposes the runtime settings a cycle reads.
type Settings interface {
	PollInterval(ctx context.Context) time.Duration
	AutoProcessing(ctx context.Context) bool
	DryRun(ctx context.Context) bool
	ToolConfig(ctx context.Context) censor.Config
}

// Dependencies bundles the collaborators of a Manager.
type Dependencies struct {
	Sources  []arr.Adapter
	Resolver Resolver
	Runner   Runner
	Settings Settings
	Notifier notifications.Service
}

// Manager owns the poll loop.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	sources  []arr.Adapter
	resolver Resolver
	runner   Runner
	settings Settings
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	cycleMu sync.Mutex

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastCycle   *CycleSummary
	lastErr     error
	lastItem    *queue.Item
	sourceState map[string]SourceState
}

// NewManager constructs a manager.
func NewManager(cfg *config.Config, store *queue.Store, deps Dependencies, logger *slog.Logger) *Manager {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Manager{
		cfg:         cfg,
		store:       store,
		sources:     deps.Sources,
		resolver:    deps.Resolver,
		runner:      deps.Runner,
		settings:    deps.Settings,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		now:         time.Now,
		sourceState: make(map[string]SourceState),
	}
}

// Start begins the background loop. The first cycle runs right away.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.resolver == nil || m.runner == nil || m.settings == nil {
		m.mu.Unlock()
		return errors.New("workflow dependencies not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.loop(runCtx)
	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Duration("tick", m.tick()),
	)
	return nil
}

// Stop terminates the loop and waits for an in-flight cycle to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

// Running reports whether the loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) tick() time.Duration {
	if m.cfg != nil && m.cfg.TickInterval() > 0 {
		return m.cfg.TickInterval()
	}
	return 10 * time.Second
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.tick())
	defer ticker.Stop()

	for {
		if m.due(ctx) {
			if _, err := m.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(m.logger, "poll cycle finished with source errors", "cycle_source_errors",
					logging.Error(err),
					logging.String(logging.FieldImpact, "failed sources skipped until the next cycle"),
				)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) due(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	m.mu.RLock()
	last := m.lastCycle
	m.mu.RUnlock()
	if last == nil {
		return true
	}
	return m.now().Sub(last.StartedAt) >= m.settings.PollInterval(ctx)
}
