package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"bleeparr/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the poll loop and control API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Signal a running daemon to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pidPath := daemonrun.PIDPath(cfg)
			pid, err := daemonrun.ReadPID(pidPath)
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if err := unix.Kill(pid, unix.SIGTERM); err != nil {
				if errors.Is(err, unix.ESRCH) {
					_ = os.Remove(pidPath)
					fmt.Fprintln(out, "Daemon is not running (removed stale pid file)")
					return nil
				}
				return fmt.Errorf("signal daemon (pid %d): %w", pid, err)
			}
			fmt.Fprintf(out, "Stopping daemon (pid %d)...\n", pid)

			deadline := time.Now().Add(wait)
			for time.Now().Before(deadline) {
				if err := unix.Kill(pid, 0); errors.Is(err, unix.ESRCH) {
					fmt.Fprintln(out, "Daemon stopped")
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}
			return fmt.Errorf("daemon (pid %d) still running after %s", pid, wait)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 15*time.Second, "How long to wait for the process to exit")
	return cmd
}
