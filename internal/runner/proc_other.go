//go:build !unix

package runner

import "os/exec"

// setProcessGroup is a no-op where process groups are unavailable; descendants
// are found and killed individually instead.
func setProcessGroup(*exec.Cmd) {}

func killProcessGroup(int) error {
	return nil
}
