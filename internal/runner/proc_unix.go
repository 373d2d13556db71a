//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in its own process group so a timeout can
// take down everything it spawned in one signal.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
