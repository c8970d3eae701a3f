//go:build !unix

package engine

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills only the direct child; descendant cleanup is a
// unix-only guarantee.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
