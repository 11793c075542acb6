package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bleeparr/internal/api"
	"bleeparr/internal/config"
	"bleeparr/internal/queueaccess"
)

type enqueueOptions struct {
	kind     string
	id       int64
	series   int64
	title    string
	detail   string
	manual   bool
	entity   bool
	dryRun   bool
	noDryRun bool
}

func (o enqueueOptions) dryRunOverride() (*bool, error) {
	switch {
	case o.dryRun && o.noDryRun:
		return nil, errors.New("specify only one of --dry-run or --no-dry-run")
	case o.dryRun:
		v := true
		return &v, nil
	case o.noDryRun:
		v := false
		return &v, nil
	default:
		return nil, nil
	}
}

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var opts enqueueOptions

	cmd := &cobra.Command{
		Use:   "enqueue [path]",
		Short: "Queue a file, an episode or movie, or a whole series",
		Long: `Queue work for the censoring tool.

  bleeparr enqueue /media/Movies/Film (2020)/film.mkv
  bleeparr enqueue --kind show --id 812 --series 44 /tv/Show/S01E02.mkv
  bleeparr enqueue --entity --kind show --id 44`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, err := opts.dryRunOverride()
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				if path, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				switch {
				case opts.entity:
					if opts.kind == "" || opts.id <= 0 {
						return errors.New("--entity requires --kind and --id")
					}
					resp, err := access.EnqueueEntity(cmd.Context(), opts.kind, opts.id, dryRun)
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, resp)
					}
					printBulkEnqueue(cmd, resp)
					return nil
				case opts.kind == "" && opts.id == 0:
					if path == "" {
						return errors.New("a file path or --kind and --id are required")
					}
					resp, err := access.EnqueueFile(cmd.Context(), path, dryRun)
					if err != nil {
						return err
					}
					return printEnqueue(cmd, ctx, resp, path)
				default:
					if path == "" {
						return errors.New("a file path is required")
					}
					resp, err := access.Enqueue(cmd.Context(), api.EnqueueRequest{
						Kind:     opts.kind,
						ItemID:   opts.id,
						SeriesID: opts.series,
						FilePath: path,
						Title:    opts.title,
						Detail:   opts.detail,
						Manual:   opts.manual,
						DryRun:   dryRun,
					})
					if err != nil {
						return err
					}
					return printEnqueue(cmd, ctx, resp, path)
				}
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kind, "kind", "", "Media kind: show or movie")
	flags.Int64Var(&opts.id, "id", 0, "Episode id (show), movie id, or entity id with --entity")
	flags.Int64Var(&opts.series, "series", 0, "Series id for an episode")
	flags.StringVar(&opts.title, "title", "", "Display title")
	flags.StringVar(&opts.detail, "detail", "", "Display detail such as S01E02")
	flags.BoolVar(&opts.manual, "manual", false, "Skip the history check and require the file to resolve now")
	flags.BoolVar(&opts.entity, "entity", false, "Queue every file of the series or movie identified by --kind and --id")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Run the tool without writing output")
	flags.BoolVar(&opts.noDryRun, "no-dry-run", false, "Write output even when the dry_run setting is on")
	return cmd
}

func printEnqueue(cmd *cobra.Command, ctx *commandContext, resp api.EnqueueResponse, path string) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	if !resp.Admitted {
		fmt.Fprintf(out, "Already queued or processed: %s\n", path)
		return nil
	}
	item := resp.Item
	mode := ""
	if item != nil && item.DryRun {
		mode = " (dry run)"
	}
	if item != nil {
		fmt.Fprintf(out, "Queued %s %d%s: %s\n", item.Kind, item.ItemID, mode, item.FilePath)
		return nil
	}
	fmt.Fprintf(out, "Queued%s: %s\n", mode, path)
	return nil
}

func printBulkEnqueue(cmd *cobra.Command, resp api.BulkEnqueueResponse) {
	out := cmd.OutOrStdout()
	title := strings.TrimSpace(resp.Title)
	if title == "" {
		title = fmt.Sprintf("%s %d", resp.Kind, resp.EntityID)
	}
	fmt.Fprintf(out, "%s: %s, %d queued, %d already queued or processed\n",
		title, countLabel(resp.Candidates, "file"), resp.Admitted, resp.Duplicates)
	if len(resp.Unresolved) > 0 {
		fmt.Fprintf(out, "Skipped %s not found locally:\n", countLabel(len(resp.Unresolved), "file"))
		for _, path := range resp.Unresolved {
			fmt.Fprintf(out, "  %s\n", path)
		}
	}
}
