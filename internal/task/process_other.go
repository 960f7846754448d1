//go:build !unix

package task

import "os/exec"

func prepareCmd(c *exec.Cmd, usePTY bool) {}

func killProcess(c *exec.Cmd) error {
	return c.Process.Kill()
}
