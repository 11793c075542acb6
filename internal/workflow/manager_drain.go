package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"bleeparr/internal/censor"
	"bleeparr/internal/logging"
	"bleeparr/internal/queue"
	"bleeparr/internal/services"
)

// itemOutcome is how one drained item left processItem.
type itemOutcome int

const (
	itemProcessed itemOutcome = iota
	itemFailed
	// itemDeferred means shutdown interrupted the item; it stays queued and
	// has no history row.
	itemDeferred
)

// Drain processes every pending item once, oldest first. It returns the
// number of successful and failed items. Items interrupted by cancellation
// count as neither.
func (m *Manager) Drain(ctx context.Context) (processed, failed int) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.drain(ctx, m.logger)
}

func (m *Manager) drain(ctx context.Context, logger *slog.Logger) (processed, failed int) {
	items, err := m.store.Pending(ctx)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to list pending items", "queue_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		m.setLastError(err)
		return 0, 0
	}
	if len(items) > 0 {
		logger.Info("draining queue", logging.Int("pending", len(items)))
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return processed, failed
		}
		switch m.processItem(ctx, logger, item) {
		case itemProcessed:
			processed++
		case itemFailed:
			failed++
		}
	}
	return processed, failed
}

// processItem resolves, censors and records one item. Every outcome,
// including a panic, becomes a history row so the item leaves the queue.
// Cancellation leaves the item queued without a row.
func (m *Manager) processItem(ctx context.Context, logger *slog.Logger, item *queue.Item) (outcome itemOutcome) {
	ctx = services.WithItemID(ctx, item.ItemID)
	ctx = services.WithItemKind(ctx, string(item.Kind))
	logger = logger.With(
		logging.Int64(logging.FieldItemID, item.ItemID),
		logging.String(logging.FieldItemKind, string(item.Kind)),
	)

	rec := &queue.HistoryRecord{
		Media:    item.Media,
		FilePath: item.FilePath,
		Title:    item.Title,
		Detail:   item.Detail,
		DryRun:   item.DryRun,
	}

	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "item processing panicked", "item_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			rec.Success = false
			rec.SwearsFound = 0
			rec.OutputPath = ""
			rec.Error = fmt.Sprintf("internal error: %v", r)
		}
		if ctx.Err() != nil {
			logger.Info("shutdown during processing; item left queued",
				logging.String(logging.FieldEventType, "item_deferred"),
			)
			outcome = itemDeferred
			return
		}
		m.complete(ctx, logger, item, rec)
		if rec.Success {
			outcome = itemProcessed
		} else {
			outcome = itemFailed
		}
	}()

	local, found := m.resolver.Resolve(ctx, item.FilePath)
	if !found {
		rec.Error = fmt.Sprintf("file not found: %s", item.FilePath)
		return itemFailed
	}

	cfg := m.settings.ToolConfig(ctx)
	out := m.runner.Run(ctx, local, censor.Metadata{
		Kind:   string(item.Kind),
		ItemID: item.ItemID,
		Title:  item.Title,
		Detail: item.Detail,
	}, cfg, item.DryRun)

	rec.Success = out.Success
	rec.SwearsFound = out.SwearsFound
	rec.Error = out.Error
	rec.OutputPath = out.OutputPath
	if !out.Success {
		rec.SwearsFound = 0
		rec.OutputPath = ""
	}
	if out.Success {
		return itemProcessed
	}
	return itemFailed
}

func (m *Manager) complete(ctx context.Context, logger *slog.Logger, item *queue.Item, rec *queue.HistoryRecord) {
	m.setLastItem(item)
	if err := m.store.Complete(ctx, rec); err != nil {
		logging.ErrorWithContext(logger, "failed to record outcome", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		m.setLastError(err)
		return
	}
	if rec.Success {
		logger.Info("item processed",
			logging.String(logging.FieldEventType, "item_processed"),
			logging.String("title", item.Label()),
			logging.Int("swears_found", rec.SwearsFound),
			logging.Bool("dry_run", rec.DryRun),
			logging.String("output", rec.OutputPath),
		)
	} else {
		logging.WarnWithContext(logger, "item failed", "item_failed",
			logging.String("title", item.Label()),
			logging.String("reason", rec.Error),
			logging.String(logging.FieldImpact, "failure recorded in history"),
		)
	}
	m.notifyOutcome(ctx, rec)
}
