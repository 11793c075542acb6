package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bleeparr/internal/queueaccess"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and reset processing history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryResetCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		kind   string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outcomes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				page, err := access.History(cmd.Context(), kind, limit, offset)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, page)
				}
				out := cmd.OutOrStdout()
				if len(page.Items) == 0 {
					fmt.Fprintln(out, "No history")
					return nil
				}
				fmt.Fprint(out, historyTable(page.Items))
				end := page.Offset + len(page.Items)
				fmt.Fprintf(out, "Showing %d-%d of %s\n", page.Offset+1, end, countLabel(page.Total, "record"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Restrict to show or movie")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Page size (max 1000)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	return cmd
}

func newHistoryResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all history so previously processed files can be admitted again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				resp, err := access.ResetHistory(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", countLabel(int(resp.Removed), "history record"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}
