//go:build windows

package daemon

import "os"

// No SIGTERM delivery on Windows; both paths end the process outright.

func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func kill(pid int) error {
	return terminate(pid)
}
