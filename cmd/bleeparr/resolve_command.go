package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bleeparr/internal/config"
	"bleeparr/internal/pathmap"
	"bleeparr/internal/queue"
	"bleeparr/internal/settings"
)

type resolveView struct {
	Reported string `json:"reported"`
	Mapped   string `json:"mapped,omitempty"`
	Resolved string `json:"resolved,omitempty"`
	Found    bool   `json:"found"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <reported-path>",
		Short: "Show how a Sonarr or Radarr path maps to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSettings(func(cfg *config.Config, _ *queue.Store, reader *settings.Reader) error {
				resolver := pathmap.NewResolver(cfg, reader, cliLogger())
				view := resolveView{Reported: args[0]}
				if mapped, ok := resolver.Map(cmd.Context(), args[0]); ok {
					view.Mapped = mapped
				}
				view.Resolved, view.Found = resolver.Resolve(cmd.Context(), args[0])
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if view.Mapped != "" {
					fmt.Fprintln(out, renderStatusLine("Mapped", statusInfo, view.Mapped, colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Mapped", statusInfo, "no mapping prefix matched", colorize))
				}
				if !view.Found {
					fmt.Fprintln(out, renderStatusLine("Resolved", statusError, "file not found", colorize))
					return fmt.Errorf("file not found: %s", args[0])
				}
				fmt.Fprintln(out, renderStatusLine("Resolved", statusOK, view.Resolved, colorize))
				return nil
			})
		},
	}
}
