//go:build unix

package censor

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess places the tool in its own process group so cancellation
// also stops any helpers it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
