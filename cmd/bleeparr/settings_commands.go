package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bleeparr/internal/config"
	"bleeparr/internal/queue"
	"bleeparr/internal/settings"
)

const secretMask = "********"

type settingView struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Stored      bool   `json:"stored"`
	Unknown     bool   `json:"unknown,omitempty"`
	Description string `json:"description,omitempty"`
}

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change runtime settings stored in the database",
	}
	settingsCmd.AddCommand(newSettingsListCommand(ctx))
	settingsCmd.AddCommand(newSettingsGetCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	settingsCmd.AddCommand(newSettingsUnsetCommand(ctx))
	return settingsCmd
}

func viewOf(entry settings.Entry, reveal bool) settingView {
	view := settingView{Key: entry.Key, Value: entry.Value, Stored: entry.Stored, Unknown: entry.Unknown}
	if def, ok := settings.Lookup(entry.Key); ok {
		view.Description = def.Description
	}
	if entry.Secret && !reveal && entry.Value != "" {
		view.Value = secretMask
	}
	return view
}

func newSettingsListCommand(ctx *commandContext) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every setting with its effective value",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSettings(func(_ *config.Config, _ *queue.Store, reader *settings.Reader) error {
				entries, err := reader.Entries(cmd.Context())
				if err != nil {
					return err
				}
				views := make([]settingView, 0, len(entries))
				for _, entry := range entries {
					views = append(views, viewOf(entry, reveal))
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, views)
				}
				rows := make([][]string, 0, len(views))
				for _, view := range views {
					source := "default"
					switch {
					case view.Unknown:
						source = "unknown"
					case view.Stored:
						source = "stored"
					}
					rows = append(rows, []string{view.Key, view.Value, source, view.Description})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Key", "Value", "Source", "Description"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show secret values")
	return cmd
}

func newSettingsGetCommand(ctx *commandContext) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			return ctx.withSettings(func(_ *config.Config, _ *queue.Store, reader *settings.Reader) error {
				entries, err := reader.Entries(cmd.Context())
				if err != nil {
					return err
				}
				for _, entry := range entries {
					if entry.Key != key {
						continue
					}
					view := viewOf(entry, reveal)
					if ctx.jsonOutput() {
						return writeJSON(cmd, view)
					}
					fmt.Fprintln(cmd.OutOrStdout(), view.Value)
					return nil
				}
				return fmt.Errorf("unknown setting %q", key)
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show secret values")
	return cmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Validate and store a setting; the daemon picks it up on next use",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSettings(func(_ *config.Config, _ *queue.Store, reader *settings.Reader) error {
				stored, err := reader.Set(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if def, ok := settings.Lookup(strings.TrimSpace(args[0])); ok && def.Type == settings.TypeSecret {
					stored = secretMask
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", strings.TrimSpace(args[0]), stored)
				return nil
			})
		},
	}
}

func newSettingsUnsetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a stored setting so the default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			return ctx.withSettings(func(_ *config.Config, store *queue.Store, _ *settings.Reader) error {
				if err := store.DeleteSetting(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reset to default\n", key)
				return nil
			})
		},
	}
}
