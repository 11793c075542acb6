package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"bleeparr/internal/logging"
	"bleeparr/internal/queue"
	"bleeparr/internal/services"
	"bleeparr/internal/services/arr"
)

// CycleSummary describes one completed poll cycle.
type CycleSummary struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Fetched      bool
	Admitted     int
	Duplicates   int
	Processed    int
	Failed       int
	SourceErrors map[string]string
}

// Duration returns how long the cycle ran.
func (c CycleSummary) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// RunCycle performs fetch, admit and drain once. It blocks while another
// cycle is running. The returned error joins per-source failures; those
// sources were skipped while the rest of the cycle continued.
func (m *Manager) RunCycle(ctx context.Context) (summary CycleSummary, err error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	summary = CycleSummary{
		ID:           uuid.NewString(),
		StartedAt:    m.now(),
		SourceErrors: map[string]string{},
	}
	ctx = services.WithRequestID(ctx, summary.ID)
	logger := m.logger.With(logging.String(logging.FieldCorrelationID, summary.ID))
	m.setLastError(nil)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panic: %v", r)
			logging.ErrorWithContext(logger, "poll cycle panicked", "cycle_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
		summary.FinishedAt = m.now()
		m.recordCycle(summary, err)
		if err == nil || !errors.Is(err, context.Canceled) {
			m.notifyCycle(ctx, summary)
		}
	}()

	logger.Debug("poll cycle started", logging.String(logging.FieldEventType, "cycle_started"))

	var sourceErrs []error
	if m.settings.AutoProcessing(ctx) {
		summary.Fetched = true
		since := m.now().Add(-m.lookback())
		dryRun := m.settings.DryRun(ctx)
		for _, source := range m.sources {
			admitted, dupes, fetchErr := m.fetchSource(ctx, logger, source, since, dryRun)
			summary.Admitted += admitted
			summary.Duplicates += dupes
			if fetchErr != nil {
				summary.SourceErrors[source.Name()] = fetchErr.Error()
				sourceErrs = append(sourceErrs, fmt.Errorf("%s: %w", source.Name(), fetchErr))
			}
		}
	} else {
		logger.Debug("auto processing disabled; skipping fetch")
	}

	summary.Processed, summary.Failed = m.drain(ctx, logger)

	logger.Info("poll cycle complete",
		logging.String(logging.FieldEventType, "cycle_complete"),
		logging.Bool("fetched", summary.Fetched),
		logging.Int("admitted", summary.Admitted),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("source_errors", len(sourceErrs)),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, errors.Join(sourceErrs...)
}

func (m *Manager) lookback() time.Duration {
	if m.cfg != nil && m.cfg.Lookback() > 0 {
		return m.cfg.Lookback()
	}
	return time.Hour
}

// fetchSource admits every recent import belonging to a flagged entity.
func (m *Manager) fetchSource(ctx context.Context, logger *slog.Logger, source arr.Adapter, since time.Time, dryRun bool) (admitted, dupes int, err error) {
	name := source.Name()
	ctx = services.WithSource(ctx, name)
	logger = logger.With(logging.String(logging.FieldSource, name))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panic: %v", r)
		}
		m.recordSource(ctx, source, err)
		if err != nil {
			logging.WarnWithContext(logger, "source skipped for this cycle", "source_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
				logging.String(logging.FieldImpact, "no new items from this source until the next cycle"),
			)
			m.notifyError(ctx, name, err)
		}
	}()

	if !source.Enabled(ctx) {
		logger.Debug("source not configured; skipping")
		return 0, 0, nil
	}

	entities, err := source.ListFilteredEntities(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(entities) == 0 {
		return 0, 0, nil
	}
	byID := make(map[int64]arr.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	events, err := source.RecentImportEvents(ctx, since)
	if err != nil {
		return 0, 0, err
	}

	seen := make(map[int64]struct{}, len(events))
	for _, ev := range events {
		entity, ok := byID[ev.EntityID]
		if !ok {
			continue
		}
		if _, dup := seen[ev.ChildID]; dup {
			continue
		}
		seen[ev.ChildID] = struct{}{}

		media := mediaFor(source.Kind(), ev.ChildID, ev.EntityID)
		if pending, err := m.store.Get(ctx, media); err == nil && pending != nil {
			dupes++
			continue
		}

		file, err := source.GetChildFile(ctx, ev.ChildID)
		if err != nil {
			if ctx.Err() != nil {
				return admitted, dupes, ctx.Err()
			}
			logging.WarnWithContext(logger, "import event skipped", "child_file_failed",
				logging.Int64("child_id", ev.ChildID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file not queued this cycle"),
			)
			continue
		}

		item := &queue.Item{
			Media:    media,
			FilePath: file.Path,
			Title:    entity.Title,
			Detail:   file.Detail,
			DryRun:   dryRun,
		}
		ok, err = m.store.Admit(ctx, item)
		if err != nil {
			logging.WarnWithContext(logger, "admission failed", "admit_failed",
				logging.Int64(logging.FieldItemID, ev.ChildID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file not queued this cycle"),
			)
			continue
		}
		if !ok {
			dupes++
			continue
		}
		admitted++
		logger.Info("item admitted",
			logging.String(logging.FieldEventType, "item_admitted"),
			logging.String(logging.FieldItemKind, string(media.Kind)),
			logging.Int64(logging.FieldItemID, media.ItemID),
			logging.String("title", item.Label()),
		)
	}
	return admitted, dupes, nil
}

func mediaFor(kind queue.Kind, childID, entityID int64) queue.Media {
	if kind == queue.KindShow {
		return queue.Show(childID, entityID)
	}
	return queue.Movie(childID)
}
