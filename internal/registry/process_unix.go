//go:build !windows

package registry

import (
	"errors"
	"syscall"
)

// Alive probes whether a process with the given pid exists, without
// signalling it. Signal 0 performs the existence check only; EPERM means
// the process exists but belongs to another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
