package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bleeparr/internal/queueaccess"
)

func newFilterCommand(ctx *commandContext) *cobra.Command {
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Opt series and movies in or out of censoring",
	}
	filterCmd.AddCommand(newFilterSetCommand(ctx, "on", true))
	filterCmd.AddCommand(newFilterSetCommand(ctx, "off", false))
	filterCmd.AddCommand(newFilterListCommand(ctx))
	return filterCmd
}

func newFilterSetCommand(ctx *commandContext, use string, filtered bool) *cobra.Command {
	short := "Opt a series or movie into censoring"
	if !filtered {
		short = "Opt a series or movie out of censoring"
	}
	return &cobra.Command{
		Use:   use + " <show|movie> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				flag, err := access.SetFiltered(cmd.Context(), args[0], id, filtered)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, flag)
				}
				state := "filtered"
				if !flag.Filtered {
					state = "not filtered"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d is now %s\n", flag.Kind, flag.EntityID, state)
				return nil
			})
		},
	}
}

func newFilterListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored opt-in flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(access queueaccess.Access) error {
				flags, err := access.Flags(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, flags)
				}
				out := cmd.OutOrStdout()
				if len(flags) == 0 {
					fmt.Fprintln(out, "No flags stored")
					return nil
				}
				rows := make([][]string, 0, len(flags))
				for _, flag := range flags {
					rows = append(rows, []string{
						flag.Kind,
						strconv.FormatInt(flag.EntityID, 10),
						yesNo(flag.Filtered),
						relativeTime(flag.UpdatedAt),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Kind", "ID", "Filtered", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
