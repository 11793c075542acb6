package api

import (
	"time"

	"bleeparr/internal/deps"
	"bleeparr/internal/preflight"
	"bleeparr/internal/queue"
	"bleeparr/internal/workflow"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromQueueItem converts a queue item into its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	return QueueItem{
		ID:        item.ID,
		Kind:      string(item.Kind),
		ItemID:    item.ItemID,
		SeriesID:  item.SeriesID,
		FilePath:  item.FilePath,
		Title:     item.Title,
		Detail:    item.Detail,
		Manual:    item.Manual,
		DryRun:    item.DryRun,
		CreatedAt: formatTime(item.CreatedAt),
	}
}

// FromQueueItems converts a slice, never returning nil.
func FromQueueItems(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, FromQueueItem(item))
		}
	}
	return out
}

// FromHistoryRecord converts a history row.
func FromHistoryRecord(rec *queue.HistoryRecord) HistoryItem {
	if rec == nil {
		return HistoryItem{}
	}
	return HistoryItem{
		ID:          rec.ID,
		Kind:        string(rec.Kind),
		ItemID:      rec.ItemID,
		SeriesID:    rec.SeriesID,
		FilePath:    rec.FilePath,
		Title:       rec.Title,
		Detail:      rec.Detail,
		Success:     rec.Success,
		SwearsFound: rec.SwearsFound,
		Error:       rec.Error,
		OutputPath:  rec.OutputPath,
		DryRun:      rec.DryRun,
		ProcessedAt: formatTime(rec.ProcessedAt),
	}
}

// FromHistoryRecords converts a slice, never returning nil.
func FromHistoryRecords(records []*queue.HistoryRecord) []HistoryItem {
	out := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, FromHistoryRecord(rec))
		}
	}
	return out
}

// FromCycleSummary converts a workflow cycle summary.
func FromCycleSummary(summary workflow.CycleSummary) CycleStatus {
	out := CycleStatus{
		ID:         summary.ID,
		StartedAt:  formatTime(summary.StartedAt),
		FinishedAt: formatTime(summary.FinishedAt),
		DurationMS: summary.Duration().Milliseconds(),
		Fetched:    summary.Fetched,
		Admitted:   summary.Admitted,
		Duplicates: summary.Duplicates,
		Processed:  summary.Processed,
		Failed:     summary.Failed,
	}
	if len(summary.SourceErrors) > 0 {
		out.SourceErrors = make(map[string]string, len(summary.SourceErrors))
		for k, v := range summary.SourceErrors {
			out.SourceErrors[k] = v
		}
	}
	return out
}

// FromSourceStates converts workflow source states.
func FromSourceStates(states []workflow.SourceState) []SourceStatus {
	out := make([]SourceStatus, 0, len(states))
	for _, s := range states {
		out = append(out, SourceStatus{
			Name:      s.Name,
			Kind:      string(s.Kind),
			Enabled:   s.Enabled,
			Available: s.Available,
			LastError: s.LastError,
			CheckedAt: formatTime(s.CheckedAt),
		})
	}
	return out
}

// FromDependencyStatuses converts dependency checks.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromPreflightResults converts preflight checks.
func FromPreflightResults(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromFilteredFlags converts stored opt-in flags.
func FromFilteredFlags(flags []queue.FilteredFlag) []FilterItem {
	out := make([]FilterItem, 0, len(flags))
	for _, f := range flags {
		out = append(out, FilterItem{
			Kind:      string(f.Kind),
			EntityID:  f.EntityID,
			Filtered:  f.Filtered,
			UpdatedAt: formatTime(f.UpdatedAt),
		})
	}
	return out
}
