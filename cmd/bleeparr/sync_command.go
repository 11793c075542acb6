package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bleeparr/internal/queueaccess"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one poll cycle now and drain the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				resp, syncErr := access.Sync(cmd.Context())
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
					return syncErr
				}
				out := cmd.OutOrStdout()
				cycle := resp.Cycle
				if cycle.ID != "" {
					fmt.Fprintf(out, "Cycle %s: %d admitted, %d duplicates, %d processed, %d failed in %s\n",
						cycle.ID, cycle.Admitted, cycle.Duplicates, cycle.Processed, cycle.Failed, formatDurationMS(cycle.DurationMS))
				}
				for _, msg := range resp.Errors {
					fmt.Fprintf(out, "  %s\n", msg)
				}
				return syncErr
			})
		},
	}
}
