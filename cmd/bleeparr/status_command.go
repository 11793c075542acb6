package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bleeparr/internal/api"
	"bleeparr/internal/queueaccess"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, source, queue and history status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				status, err := access.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				renderStatus(out, access.Mode(), status, shouldColorize(out))
				return nil
			})
		},
	}
}

func renderStatus(out io.Writer, mode string, status api.Status, colorize bool) {
	section := func(title string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(out, line)
		}
	}

	section("Daemon")
	if mode == queueaccess.ModeDaemon {
		kind := statusOK
		detail := "polling"
		if !status.Running {
			kind, detail = statusWarn, "poll loop stopped"
		}
		fmt.Fprintln(out, renderStatusLine("Daemon", kind, detail, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not reachable; showing database contents", colorize))
	}
	if cycle := status.LastCycle; cycle != nil {
		detail := fmt.Sprintf("%s, %d admitted, %d processed, %d failed (%s)",
			relativeTime(cycle.FinishedAt), cycle.Admitted, cycle.Processed, cycle.Failed, formatDurationMS(cycle.DurationMS))
		kind := statusOK
		if len(cycle.SourceErrors) > 0 || cycle.Failed > 0 {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Last cycle", kind, detail, colorize))
	}
	if status.NextCycleAt != "" {
		fmt.Fprintln(out, renderStatusLine("Next cycle", statusInfo, status.NextCycleAt, colorize))
	}
	if status.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.LastError, colorize))
	}
	fmt.Fprintln(out)

	section("Sources")
	for _, line := range sourceLines(status.Sources, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	section("Dependencies")
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	section("Queue")
	if len(status.Queue.Items) == 0 {
		fmt.Fprintln(out, "Queue is empty")
	} else {
		fmt.Fprint(out, queueTable(status.Queue.Items))
	}
	fmt.Fprintln(out)

	section(fmt.Sprintf("History (%s)", countLabel(status.History.Total, "record")))
	if len(status.History.Recent) == 0 {
		fmt.Fprintln(out, "No files processed yet")
		return
	}
	fmt.Fprint(out, historyTable(status.History.Recent))
}

func sourceLines(sources []api.SourceStatus, colorize bool) []string {
	if len(sources) == 0 {
		return []string{renderStatusLine("Sources", statusWarn, "none configured", colorize)}
	}
	lines := make([]string, 0, len(sources))
	for _, source := range sources {
		switch {
		case !source.Enabled:
			lines = append(lines, renderStatusLine(source.Name, statusInfo, "not configured", colorize))
		case source.LastError != "":
			lines = append(lines, renderStatusLine(source.Name, statusError, source.LastError, colorize))
		case source.CheckedAt == "":
			lines = append(lines, renderStatusLine(source.Name, statusInfo, "configured, not polled yet", colorize))
		default:
			lines = append(lines, renderStatusLine(source.Name, statusOK, "polled "+relativeTime(source.CheckedAt), colorize))
		}
	}
	return lines
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	var missing []string
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func queueTable(items []api.QueueItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		flags := make([]string, 0, 2)
		if item.Manual {
			flags = append(flags, "manual")
		}
		if item.DryRun {
			flags = append(flags, "dry-run")
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Kind,
			displayTitle(item.Title, item.Detail),
			item.FilePath,
			strings.Join(flags, ","),
			relativeTime(item.CreatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Kind", "Title", "Path", "Flags", "Queued"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func historyTable(items []api.HistoryItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		result := "ok"
		if !item.Success {
			result = "failed"
		}
		if item.DryRun {
			result += " (dry run)"
		}
		detail := item.OutputPath
		if !item.Success {
			detail = item.Error
		}
		rows = append(rows, []string{
			item.Kind,
			displayTitle(item.Title, item.Detail),
			result,
			strconv.Itoa(item.SwearsFound),
			detail,
			relativeTime(item.ProcessedAt),
		})
	}
	return renderTable(
		[]string{"Kind", "Title", "Result", "Swears", "Output / Error", "Processed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func displayTitle(title, detail string) string {
	title = strings.TrimSpace(title)
	detail = strings.TrimSpace(detail)
	switch {
	case title == "" && detail == "":
		return "-"
	case detail == "":
		return title
	case title == "":
		return detail
	default:
		return title + " " + detail
	}
}
