//go:build !windows

package detector

import (
	"errors"
	"syscall"
)

// PidAlive returns true if a process with given pid exists (or EPERM).
func PidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// PIDDetector detects by a provided PID number.
type PIDDetector struct {
	PID int
	// StartUnix, when > 0, is compared against the live process start time
	// to reject reused PIDs.
	StartUnix int64
}

func (d PIDDetector) Alive() (bool, error) {
	if d.StartUnix > 0 {
		cur := ProcStartUnix(d.PID)
		if cur > 0 && cur != d.StartUnix {
			return false, nil // PID reused; not our process
		}
	}
	return PidAlive(d.PID), nil
}
