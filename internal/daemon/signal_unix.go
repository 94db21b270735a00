//go:build !windows

package daemon

import "syscall"

// terminate asks the process to shut down gracefully.
func terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// kill forcefully terminates the process.
func kill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}
