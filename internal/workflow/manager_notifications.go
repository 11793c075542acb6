package workflow

import (
	"context"
	"errors"

	"bleeparr/internal/logging"
	"bleeparr/internal/notifications"
	"bleeparr/internal/queue"
)

func (m *Manager) notifyOutcome(ctx context.Context, rec *queue.HistoryRecord) {
	event := notifications.EventCensored
	payload := notifications.Payload{
		"title":  rec.Title,
		"detail": rec.Detail,
		"kind":   string(rec.Kind),
	}
	if rec.Success {
		payload["swears"] = rec.SwearsFound
		payload["dryRun"] = rec.DryRun
	} else {
		event = notifications.EventFailed
		payload["reason"] = rec.Error
	}
	m.publish(ctx, event, payload)
}

func (m *Manager) notifyCycle(ctx context.Context, summary CycleSummary) {
	if summary.Admitted == 0 && summary.Processed == 0 && summary.Failed == 0 {
		return
	}
	m.publish(ctx, notifications.EventCycleCompleted, notifications.Payload{
		"admitted":  summary.Admitted,
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"duration":  summary.Duration(),
	})
}

func (m *Manager) notifyError(ctx context.Context, label string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"context": label,
		"error":   err,
	})
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, notification dropped", logging.String("event", string(event)))
			return
		}
		m.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
