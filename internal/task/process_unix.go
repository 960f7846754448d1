//go:build unix

package task

import (
	"os/exec"
	"syscall"
)

// prepareCmd puts the child in its own process group so Stop reaches any
// processes it spawned. pty.Start already makes the child a session leader.
func prepareCmd(c *exec.Cmd, usePTY bool) {
	if !usePTY {
		c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
}

func killProcess(c *exec.Cmd) error {
	return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
}
