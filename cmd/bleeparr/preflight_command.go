package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bleeparr/internal/queueaccess"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, the censoring tool and source connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				results, err := access.Preflight(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				failed := 0
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
						failed++
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
				if failed > 0 {
					return fmt.Errorf("%s failed", countLabel(failed, "check"))
				}
				return nil
			})
		},
	}
}
