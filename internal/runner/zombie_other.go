//go:build !linux

package runner

// isZombie is unknown without procfs; exited processes are expected to be
// reaped by init before the grace window ends.
func isZombie(int) bool {
	return false
}
