//go:build windows

package detector

import (
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// PidAlive returns true if a process with given pid exists.
func PidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// PIDDetector detects by a provided PID number.
type PIDDetector struct {
	PID       int
	StartUnix int64
}

func (d PIDDetector) Alive() (bool, error) {
	if d.StartUnix > 0 {
		cur := ProcStartUnix(d.PID)
		if cur > 0 && cur != d.StartUnix {
			return false, nil
		}
	}
	return PidAlive(d.PID), nil
}
